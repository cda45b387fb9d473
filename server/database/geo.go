package database

import (
	"strconv"
	"strings"

	"github.com/kirov7/kuloydis"
	"github.com/kirov7/kuloydis/public"
	"github.com/kirov7/kuloydis/resp/reply"
	"github.com/kirov7/kuloydis/server"
)

func init() {
	RegisterCommand("geoadd", execGeoAdd, 5, true, false)
	RegisterCommand("geopos", execGeoPos, -3, false, false)
	RegisterCommand("geodist", execGeoDist, -4, false, false)
	RegisterCommand("geosearch", execGeoSearch, 8, false, false)
}

func execGeoAdd(d *Database, c *server.Conn, args [][]byte) reply.Reply {
	lon, err := strconv.ParseFloat(string(args[1]), 64)
	if err != nil {
		return reply.MakeErrReply(public.ErrInvalidGeo.Error())
	}
	lat, err := strconv.ParseFloat(string(args[2]), 64)
	if err != nil {
		return reply.MakeErrReply(public.ErrInvalidGeo.Error())
	}
	n, err := c.Keyspace().GeoAdd(args[0], lon, lat, args[3])
	if err != nil {
		return errReply(err)
	}
	return reply.MakeIntReply(int64(n))
}

func execGeoPos(d *Database, c *server.Conn, args [][]byte) reply.Reply {
	out := make([]reply.Reply, len(args)-1)
	for i, member := range args[1:] {
		lon, lat, ok, err := c.Keyspace().GeoPos(args[0], member)
		if err != nil {
			return errReply(err)
		}
		if !ok {
			out[i] = reply.MakeNullArrayReply()
			continue
		}
		out[i] = reply.MakeMultiBulkReply([]reply.Reply{
			reply.MakeBulkReply([]byte(strconv.FormatFloat(lon, 'f', 17, 64))),
			reply.MakeBulkReply([]byte(strconv.FormatFloat(lat, 'f', 17, 64))),
		})
	}
	return reply.MakeMultiBulkReply(out)
}

func execGeoDist(d *Database, c *server.Conn, args [][]byte) reply.Reply {
	unit := "m"
	if len(args) == 4 {
		unit = strings.ToLower(string(args[3]))
	}
	dist, ok, err := c.Keyspace().GeoDist(args[0], args[1], args[2], unit)
	if err != nil {
		return errReply(err)
	}
	if !ok {
		return reply.MakeNullBulkReply()
	}
	return reply.MakeBulkReply([]byte(kuloydis.FormatDistance(dist)))
}

// execGeoSearch implements GEOSEARCH key FROMLONLAT lon lat BYRADIUS
// radius unit: a full scan over the set, results
// ordered by ascending distance from the query point.
func execGeoSearch(d *Database, c *server.Conn, args [][]byte) reply.Reply {
	if !strings.EqualFold(string(args[1]), "fromlonlat") || !strings.EqualFold(string(args[4]), "byradius") {
		return reply.MakeErrReply(public.ErrSyntax.Error())
	}
	lon, err := strconv.ParseFloat(string(args[2]), 64)
	if err != nil {
		return reply.MakeErrReply(public.ErrInvalidGeo.Error())
	}
	lat, err := strconv.ParseFloat(string(args[3]), 64)
	if err != nil {
		return reply.MakeErrReply(public.ErrInvalidGeo.Error())
	}
	radius, err := strconv.ParseFloat(string(args[5]), 64)
	if err != nil {
		return reply.MakeErrReply(public.ErrNotFloat.Error())
	}
	unit := strings.ToLower(string(args[6]))
	radiusM := radius
	switch unit {
	case "km":
		radiusM = radius * 1000
	case "mi":
		radiusM = radius * 1609.34
	case "ft":
		radiusM = radius / 3.28084
	}

	results, err := c.Keyspace().GeoSearch(args[0], lon, lat, radiusM)
	if err != nil {
		return errReply(err)
	}
	members := make([][]byte, len(results))
	for i, r := range results {
		members[i] = r.Member
	}
	return reply.MakeStringArrayReply(members)
}
