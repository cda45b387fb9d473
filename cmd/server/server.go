package server

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/kirov7/kuloydis"
	"github.com/kirov7/kuloydis/cmd/root"
	"github.com/kirov7/kuloydis/driver"
	"github.com/kirov7/kuloydis/public"
	"github.com/kirov7/kuloydis/replication"
	kserver "github.com/kirov7/kuloydis/server"
	"github.com/kirov7/kuloydis/server/database"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var configFile string
var cmdPort *int
var cmdReplicaOf, cmdDir, cmdDBFilename string

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Run a kuloydis server",
	Long:  `Starts a RESP-speaking kuloydis server, optionally as a replica of an existing master.`,
	Run: func(cmd *cobra.Command, args []string) {
		if configFile != "" {
			viper.SetConfigFile(configFile)
			if err := viper.ReadInConfig(); err != nil {
				fmt.Printf("Unable to read configuration file: %s, please check whether the path is correct \n", configFile)
				os.Exit(1)
			}
		} else {
			viper.Set("server.port", *cmdPort)
			viper.Set("server.replicaof", cmdReplicaOf)
			viper.Set("server.dir", cmdDir)
			viper.Set("server.dbfilename", cmdDBFilename)
		}

		opts := kuloydis.Options{
			Port:       viper.GetInt("server.port"),
			ReplicaOf:  viper.GetString("server.replicaof"),
			Dir:        viper.GetString("server.dir"),
			DBFilename: viper.GetString("server.dbfilename"),
		}

		run(opts)
	},
}

func init() {
	cmdPort = serverCmd.Flags().IntP("port", "p", public.DefaultPort, "RESP listen port")
	serverCmd.Flags().StringVarP(&cmdReplicaOf, "replicaof", "r", "", "\"<host> <port>\" of a master to replicate from")
	serverCmd.Flags().StringVarP(&cmdDir, "dir", "d", "", "directory holding the optional startup snapshot")
	serverCmd.Flags().StringVarP(&cmdDBFilename, "dbfilename", "f", "", "snapshot file name within --dir")
	serverCmd.Flags().StringVarP(&configFile, "cpath", "c", "", "path of a yaml/json/toml config file (optional)")

	root.AddCommand(serverCmd)
}

func run(opts kuloydis.Options) {
	addr := fmt.Sprintf(":%d", opts.Port)
	srv := kserver.New(addr)
	srv.Opts = opts
	db := database.NewDatabase(srv)
	srv.Engine = db

	loadSnapshot(opts)

	if opts.ReplicaOf != "" {
		startReplica(srv, db, opts)
	}

	go func() {
		log.Printf("kuloydis: server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != kserver.ErrServerClosed {
			log.Fatalf("kuloydis: serve: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("kuloydis: shutting down...")
	if err := srv.Close(); err != nil {
		log.Printf("kuloydis: close: %v", err)
	}
}

// loadSnapshot surfaces --dir/--dbfilename through the abstract
// snapshot.Source the driver package implements. Decoding the payload
// into keyspace rows is RDB decoding, an explicit non-goal, so a found
// snapshot is only logged, never applied.
func loadSnapshot(opts kuloydis.Options) {
	if opts.Dir == "" || opts.DBFilename == "" {
		return
	}
	src := driver.NewFileSource(opts.Dir, opts.DBFilename+public.SnapshotFileSuffix)
	data, err := src.Load()
	if err != nil {
		log.Printf("kuloydis: snapshot load: %v", err)
		return
	}
	if len(data) == 0 {
		log.Printf("kuloydis: no snapshot found at %s/%s", opts.Dir, opts.DBFilename)
		return
	}
	log.Printf("kuloydis: found %d-byte snapshot at %s/%s (decoding is not implemented)", len(data), opts.Dir, opts.DBFilename)
}

// startReplica performs the PSYNC handshake against opts.ReplicaOf and
// runs the command-stream reader in the background.
func startReplica(srv *kserver.Server, db *database.Database, opts kuloydis.Options) {
	parts := strings.Fields(opts.ReplicaOf)
	if len(parts) != 2 {
		log.Fatalf("kuloydis: --replicaof must be \"<host> <port>\", got %q", opts.ReplicaOf)
	}
	host := parts[0]
	port, err := strconv.Atoi(parts[1])
	if err != nil {
		log.Fatalf("kuloydis: --replicaof port: %v", err)
	}

	rp, _, err := replication.Dial(host, port, opts.Port)
	if err != nil {
		log.Fatalf("kuloydis: replica handshake with %s:%d failed: %v", host, port, err)
	}
	srv.Replica = rp
	log.Printf("kuloydis: replica of %s:%d", host, port)

	go func() {
		if err := rp.Run(db); err != nil {
			log.Printf("kuloydis: replica stream from %s:%d ended: %v", host, port, err)
		}
	}()
}
