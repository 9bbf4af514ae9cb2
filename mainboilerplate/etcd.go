package mainboilerplate

import (
	"time"

	"github.com/pkg/errors"
	"go.etcd.io/etcd/clientv3"
)

// EtcdConfig identifies an etcd cluster to dial, used by membershipsvc's
// roster watch. Modeled on the teacher's own direct use of
// go.etcd.io/etcd/clientv3 in consumer/service.go and consumer/resolver.go.
type EtcdConfig struct {
	Address string        `long:"etcd.address" env:"ETCD_ADDRESS" default:"localhost:2379" description:"Etcd cluster address"`
	Timeout time.Duration `long:"etcd.timeout" env:"ETCD_TIMEOUT" default:"10s" description:"Etcd dial timeout"`
}

// MustDial dials the configured etcd cluster, exiting the process on
// failure.
func (c EtcdConfig) MustDial() *clientv3.Client {
	var client, err = c.Dial()
	Must(err, "failed to dial etcd at %s", c.Address)
	return client
}

// Dial dials the configured etcd cluster.
func (c EtcdConfig) Dial() (*clientv3.Client, error) {
	var client, err = clientv3.New(clientv3.Config{
		Endpoints:   []string{c.Address},
		DialTimeout: c.Timeout,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "dialing etcd at %s", c.Address)
	}
	return client, nil
}
