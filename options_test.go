package kuloydis

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOptionsNormalizeDefaultsPort(t *testing.T) {
	o := &Options{}
	o.normalize()
	assert.Equal(t, 6379, o.Port)
}

func TestOptionsNormalizeKeepsExplicitPort(t *testing.T) {
	o := &Options{Port: 7000}
	o.normalize()
	assert.Equal(t, 7000, o.Port)
}

func TestOptionsNormalizeLeavesReplicationAndSnapshotFieldsAlone(t *testing.T) {
	o := &Options{ReplicaOf: "127.0.0.1 6379", Dir: "/data", DBFilename: "dump.rdb"}
	o.normalize()
	assert.Equal(t, "127.0.0.1 6379", o.ReplicaOf)
	assert.Equal(t, "/data", o.Dir)
	assert.Equal(t, "dump.rdb", o.DBFilename)
}
