package collective

import (
	"context"
	"fmt"

	"github.com/ValentinKolb/dReshard/lib/store"
	"github.com/ValentinKolb/dReshard/rpc/comm"
)

// Agree returns an error on every rank if err is non-nil on any rank. The
// local error is returned where it occurred, the others get a generic one.
// Agree is collective over group.
func Agree(ctx context.Context, group *comm.Comm, what string, err error) error {
	var flag uint64
	if err != nil {
		flag = 1
	}
	failed, cErr := comm.AllreduceOne(ctx, group, flag, comm.OpMax)
	if cErr != nil {
		return cErr
	}
	switch {
	case err != nil:
		return err
	case failed != 0:
		return fmt.Errorf("%s failed on another rank", what)
	}
	return nil
}

// OpenReaders opens the source on every rank of the island. If any rank
// fails, all ranks close their reader and return an error.
func OpenReaders(ctx context.Context, island *comm.Comm, path string, open func() (store.IReader, error)) (store.IReader, error) {
	r, err := open()
	if err := Agree(ctx, island, "open "+path, err); err != nil {
		if r != nil {
			_ = r.Close()
		}
		return nil, err
	}
	return r, nil
}
