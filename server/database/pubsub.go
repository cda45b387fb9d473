// Package database's pub/sub commands. SUBSCRIBE/UNSUBSCRIBE
// are handled directly by Database.Exec rather than through the normal
// command table because each sends one reply *frame per channel
// argument*, not the single Reply every other command produces.
package database

import (
	"github.com/kirov7/kuloydis/resp"
	"github.com/kirov7/kuloydis/resp/reply"
	"github.com/kirov7/kuloydis/server"
)

func init() {
	RegisterCommand("publish", execPublish, 3, false, false)
}

// execSubscribe adds each listed channel to c's subscription set and
// the hub, replying ["subscribe", channel, count] once per channel in
// argument order.
func (d *Database) execSubscribe(c *server.Conn, channels [][]byte) []byte {
	if len(channels) == 0 {
		return reply.MakeArgNumErrReply("subscribe").ToBytes()
	}
	sub := c.Subscriber()
	var out []byte
	for _, ch := range channels {
		channel := string(ch)
		c.Server().Hub.Subscribe(channel, sub)
		n := c.AddSubscription(channel)
		out = append(out, subAckFrame("subscribe", channel, n)...)
	}
	return out
}

func (d *Database) execUnsubscribe(c *server.Conn, channels [][]byte) []byte {
	list := channels
	if len(list) == 0 {
		list = channelsAsBytes(c.Channels())
	}
	var out []byte
	for _, ch := range list {
		channel := string(ch)
		c.Server().Hub.Unsubscribe(channel, c.Subscriber())
		n := c.RemoveSubscription(channel)
		out = append(out, subAckFrame("unsubscribe", channel, n)...)
	}
	return out
}

func channelsAsBytes(channels []string) [][]byte {
	out := make([][]byte, len(channels))
	for i, ch := range channels {
		out[i] = []byte(ch)
	}
	return out
}

// subAckFrame builds the ["subscribe"|"unsubscribe", channel,
// current-subscription-count] array sent once per named channel.
func subAckFrame(kind, channel string, count int) []byte {
	w := resp.NewByteWriter()
	w.WriteArrayHeader(3)
	w.WriteBulk([]byte(kind))
	w.WriteBulk([]byte(channel))
	w.WriteInteger(int64(count))
	return w.Bytes()
}

// execPublish fans payload out to channel's current subscribers and
// returns the subscriber count. Delivery itself is
// not a keyspace mutation, so PUBLISH is never propagated to replicas.
func execPublish(d *Database, c *server.Conn, args [][]byte) reply.Reply {
	channel := string(args[0])
	n := c.Server().Hub.Publish(channel, args[1])
	return reply.MakeIntReply(int64(n))
}
