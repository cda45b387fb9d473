package public

const (
	// SnapshotFileSuffix names the on-disk file the driver package writes.
	// The driver's lock file sits beside it under the same path plus
	// ".flock"; FileLockName is not used to build that path.
	SnapshotFileSuffix = ".kdis"
	FileLockName       = "flock"

	// DefaultPort is the RESP listen port when --port is not given.
	DefaultPort = 6379

	// NumDatabases is the fixed number of SELECT-able keyspaces per server.
	NumDatabases = 16
)

// StreamMinID and StreamMaxID are the XRANGE "-" and "+" sentinels.
var (
	StreamMinID = [2]uint64{0, 0}
	StreamMaxID = [2]uint64{^uint64(0), ^uint64(0)}
)
