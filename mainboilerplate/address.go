package mainboilerplate

import (
	"context"

	"github.com/pkg/errors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/fififish/rapid/protocol"
)

// AddressConfig identifies a gRPC endpoint to dial, the rapid analogue of
// the teacher's mbp.AddressConfig (dialed in
// examples/word-count/wordcountctl/main.go via
// `word_count.NewNGramClient(Config.WordCount.MustDial(ctx))`).
type AddressConfig struct {
	Address string `long:"address" env:"ADDRESS" default:"localhost:8080" description:"Address to dial or bind"`
}

// MustDial dials Address with the Membership service's JSON codec, exiting
// the process on failure (mirroring mbp.AddressConfig.MustDial's fail-fast
// contract).
func (c AddressConfig) MustDial(ctx context.Context) *grpc.ClientConn {
	var cc, err = c.Dial(ctx)
	Must(err, "failed to dial %s", c.Address)
	return cc
}

// Dial dials Address with the Membership service's JSON codec.
func (c AddressConfig) Dial(ctx context.Context) (*grpc.ClientConn, error) {
	var cc, err = grpc.DialContext(ctx, c.Address,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(protocol.Codec())),
		grpc.WithBlock(),
	)
	if err != nil {
		return nil, errors.Wrapf(err, "dialing %s", c.Address)
	}
	return cc, nil
}
