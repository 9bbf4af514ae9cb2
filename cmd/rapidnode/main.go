// Command rapidnode runs, or submits RPCs to, the view-change aggregation
// core described by spec.md: a Watermark Buffer exposed over a deferred
// gRPC dispatch boundary. Modeled directly on
// examples/word-count/wordcountctl/main.go's command-struct-per-subcommand
// shape.
package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/jessevdk/go-flags"
	log "github.com/sirupsen/logrus"

	mbp "github.com/fififish/rapid/mainboilerplate"
	"github.com/fififish/rapid/membership"
	"github.com/fififish/rapid/membershipsvc"
	"github.com/fififish/rapid/protocol"
	"github.com/fififish/rapid/server"
	"github.com/fififish/rapid/task"
)

var Config = new(struct {
	Serve cmdServe `command:"serve" description:"Run the membership RPC server"`
	Report cmdReport `command:"report" description:"Submit a link-update report"`
	Log mbp.LogConfig `group:"Logging" namespace:"log" env-namespace:"LOG"`
})

type cmdServe struct {
	Address mbp.AddressConfig `group:"Server" namespace:"server" env-namespace:"SERVER"`
	Etcd    mbp.EtcdConfig    `group:"Etcd"`

	K uint32 `long:"K" env:"K" default:"10" description:"Expected monitors per node"`
	H uint32 `long:"H" env:"H" default:"3" description:"High (stability) threshold"`
	L uint32 `long:"L" env:"L" default:"2" description:"Low (suspicion) threshold"`

	RosterPrefix string `long:"roster-prefix" env:"ROSTER_PREFIX" default:"/rapid/roster/" description:"Etcd key prefix of the cluster roster"`
}

func (cmd *cmdServe) Execute([]string) error {
	Config.Log.Configure()

	var etcd = cmd.Etcd.MustDial()
	defer etcd.Close()

	var svc, err = membershipsvc.NewService(
		membership.Config{K: cmd.K, H: cmd.H, L: cmd.L},
		etcd,
		cmd.RosterPrefix,
		func(epoch uint64, p membership.Proposal) {
			log.WithFields(log.Fields{"epoch": epoch, "size": len(p)}).Info("view-change proposal")
		},
	)
	mbp.Must(err, "failed to construct membership service")

	var protocolTasks = task.NewGroup(context.Background())
	var transportTasks = task.NewGroup(context.Background())
	var adapter = server.NewAdapter(protocolTasks, transportTasks)

	var lis, lerr = net.Listen("tcp", cmd.Address.Address)
	mbp.Must(lerr, "failed to listen on %s", cmd.Address.Address)

	protocolTasks.Queue("roster.watch", func() error { return svc.RunRosterWatch(protocolTasks.Context()) })

	go func() {
		// The membership service takes a moment to be ready for real
		// traffic (an etcd round-trip for the initial roster read); binding
		// here, rather than before Serve, exercises the deferred-dispatch
		// boundary (C2) exactly as spec.md §4.2 describes it for bootstrap
		// ordering.
		mbp.Must(adapter.SetMembershipService(svc), "failed to bind membership service")
	}()

	var sig = make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		var ctx, cancel = context.WithTimeout(context.Background(), cmd.Etcd.Timeout)
		defer cancel()
		log.Info("rapidnode: shutting down")
		mbp.Must(adapter.Stop(ctx), "graceful stop failed")
	}()

	log.WithField("address", cmd.Address.Address).Info("rapidnode: serving")
	return adapter.Serve(lis)
}

type cmdReport struct {
	Address mbp.AddressConfig `group:"Server" namespace:"server" env-namespace:"SERVER"`

	Src string `long:"src" description:"Reporting endpoint host:port"`
	Dst string `long:"dst" description:"Observed destination endpoint host:port"`
}

func (cmd *cmdReport) Execute([]string) error {
	Config.Log.Configure()

	var ctx = context.Background()
	var cc = cmd.Address.MustDial(ctx)
	defer cc.Close()

	var client = protocol.NewMembershipClient(cc)
	var _, err = client.LinkUpdate(ctx, &protocol.BatchedLinkUpdateMessage{
		Updates: []membership.LinkUpdateMessage{
			{Src: parseEndpoint(cmd.Src), Dst: parseEndpoint(cmd.Dst)},
		},
	})
	mbp.Must(err, "LinkUpdate RPC failed")

	log.WithFields(log.Fields{"src": cmd.Src, "dst": cmd.Dst}).Info("report submitted")
	return nil
}

func parseEndpoint(hostport string) membership.Endpoint {
	var host, portStr, err = net.SplitHostPort(hostport)
	mbp.Must(err, "invalid endpoint %q", hostport)
	var port uint64
	port, err = strconv.ParseUint(portStr, 10, 32)
	mbp.Must(err, "invalid port in endpoint %q", hostport)
	return membership.Endpoint{Host: host, Port: uint32(port)}
}

func main() {
	var parser = flags.NewParser(Config, flags.Default)
	mbp.MustParseArgs(parser)
}
