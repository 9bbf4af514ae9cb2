package membershipsvc

import (
	"context"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"go.etcd.io/etcd/clientv3"
	"go.etcd.io/etcd/mvcc/mvccpb"

	"github.com/fififish/rapid/membership"
)

// RunRosterWatch watches the etcd keyspace under the Service's rosterPrefix
// for registered cluster Endpoints, and triggers an epoch rollover (see
// rollover) whenever the roster size changes enough to imply a new K. It
// runs until ctx is cancelled, mirroring the teacher's
// Resolver.watch(ctx, etcd) in consumer/resolver.go, which likewise loops
// on a KeySpace.Watch until cancellation and treats context.Canceled as a
// clean stop rather than an error.
//
// This package does not depend on the teacher's keyspace.KeySpace
// abstraction (its source was not part of the retrieved pack); instead it
// watches the prefix directly with clientv3's own Watcher, which is the
// lower-level primitive keyspace.KeySpace itself is built on.
func (s *Service) RunRosterWatch(ctx context.Context) error {
	if s.etcd == nil {
		return nil // No etcd client configured; static K, nothing to watch.
	}

	var getResp, err = s.etcd.Get(ctx, s.rosterPrefix, clientv3.WithPrefix(), clientv3.WithKeysOnly())
	if err != nil {
		return errors.Wrap(err, "membershipsvc: initial roster Get failed")
	}
	var size = len(getResp.Kvs)
	if err := s.maybeRollover(size); err != nil {
		return err
	}

	var watchCh = s.etcd.Watch(ctx, s.rosterPrefix, clientv3.WithPrefix(), clientv3.WithRev(getResp.Header.Revision+1))
	for {
		select {
		case <-ctx.Done():
			return nil
		case resp, ok := <-watchCh:
			if !ok {
				return nil
			}
			if resp.Err() != nil {
				if errors.Cause(resp.Err()) == context.Canceled {
					return nil
				}
				return errors.Wrap(resp.Err(), "membershipsvc: roster watch failed")
			}
			for _, ev := range resp.Events {
				switch ev.Type {
				case mvccpb.PUT:
					if ev.Kv != nil && ev.Kv.CreateRevision == ev.Kv.ModRevision {
						size++ // A PUT re-setting an existing key is not a roster growth.
					}
				case mvccpb.DELETE:
					if size > 0 {
						size--
					}
				}
			}
			if err := s.maybeRollover(size); err != nil {
				return err
			}
		}
	}
}

// maybeRollover rolls the Service over to a new epoch if the roster size
// implies a materially different K than the current epoch's Buffer was
// constructed with. The new K is the roster size, floored at minK. H and L
// are held at the same proportion of K as the current configuration,
// rounded down, with H capped at the new K and L capped at H.
func (s *Service) maybeRollover(rosterSize int) error {
	var k = uint32(rosterSize)
	if k < s.minK {
		k = s.minK
	}

	var cur = s.Buffer().Config()
	if cur.K == k {
		return nil // No material change; avoid a needless epoch bump.
	}

	log.WithFields(log.Fields{"rosterSize": rosterSize, "newK": k, "oldK": cur.K}).
		Info("membershipsvc: roster size changed, computing new epoch config")

	var h = scaleThreshold(cur.H, cur.K, k)
	if h > k {
		h = k
	}
	var l = scaleThreshold(cur.L, cur.K, k)
	if l > h {
		l = h
	}
	return s.rollover(membership.Config{K: k, H: h, L: l})
}

// scaleThreshold scales a threshold proportionally from an old K to a new
// K, rounding down.
func scaleThreshold(threshold, oldK, newK uint32) uint32 {
	if oldK == 0 {
		return threshold
	}
	return threshold * newK / oldK
}
