package helper

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bgunnarsson/dbhelper/internal/config"
	"github.com/bgunnarsson/dbhelper/internal/db"
	"github.com/bgunnarsson/dbhelper/internal/db/sqlite"
)

func testConfig() *config.Config {
	return &config.Config{Helpers: map[string]config.Settings{
		"default": {DBType: "SQLITE", Database: ":memory:", PoolNum: 2, ConnectionTimeout: 3},
		"reports": {DBType: "PGSQL", Database: "reports"},
	}}
}

func TestFactory_OpensLazilyOnce(t *testing.T) {
	var opened atomic.Int32
	var gotOpts db.Options
	open := func(ctx context.Context, s config.Settings, opts db.Options) (db.DB, error) {
		opened.Add(1)
		gotOpts = opts
		return &fakeDB{dialect: db.SQLiteDialect{}, driver: "sqlite"}, nil
	}

	f := NewFactory(testConfig(), open, logger)
	require.Equal(t, []string{"default", "reports"}, f.Names())
	require.Zero(t, opened.Load())

	var wg sync.WaitGroup
	helpers := make([]*Helper, 8)
	for i := range helpers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h, err := f.Default(context.Background())
			assert.NoError(t, err)
			helpers[i] = h
		}()
	}
	wg.Wait()

	require.Equal(t, int32(1), opened.Load())
	for _, h := range helpers {
		require.Same(t, helpers[0], h)
	}
	require.Equal(t, 2, gotOpts.MaxOpenConns)
	require.Equal(t, 3*time.Second, gotOpts.ConnectTimeout)
}

func TestFactory_UnknownHelper(t *testing.T) {
	f := NewFactory(testConfig(), nil, nil)

	_, err := f.Helper(context.Background(), "nope")
	require.ErrorIs(t, err, ErrUnknownHelper)
}

func TestFactory_OpenError(t *testing.T) {
	boom := errors.New("connection refused")
	calls := 0
	open := func(context.Context, config.Settings, db.Options) (db.DB, error) {
		calls++
		return nil, boom
	}
	f := NewFactory(testConfig(), open, logger)

	_, err := f.Helper(context.Background(), "reports")
	require.ErrorIs(t, err, boom)
	require.EqualError(t, err, `open helper "reports": connection refused`)

	// a failed open is not cached
	_, err = f.Helper(context.Background(), "reports")
	require.ErrorIs(t, err, boom)
	require.Equal(t, 2, calls)
}

func TestFactory_Close(t *testing.T) {
	closeErr := errors.New("close failed")
	fakes := map[string]*fakeDB{
		"default": {dialect: db.SQLiteDialect{}, driver: "sqlite"},
		"reports": {dialect: db.PostgresDialect{}, driver: "postgres", closeErr: closeErr},
	}
	open := func(_ context.Context, s config.Settings, _ db.Options) (db.DB, error) {
		if s.Database == "reports" {
			return fakes["reports"], nil
		}
		return fakes["default"], nil
	}
	f := NewFactory(testConfig(), open, logger)

	ctx := context.Background()
	_, err := f.Default(ctx)
	require.NoError(t, err)
	_, err = f.Helper(ctx, "reports")
	require.NoError(t, err)

	err = f.Close()
	require.ErrorIs(t, err, closeErr)
	require.Equal(t, 1, fakes["default"].closed)
	require.Equal(t, 1, fakes["reports"].closed)

	_, err = f.Default(ctx)
	require.ErrorIs(t, err, ErrFactoryClosed)
}

func TestFactory_SlowOpenDoesNotBlockOthers(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	open := func(_ context.Context, s config.Settings, _ db.Options) (db.DB, error) {
		if s.Database == "reports" {
			close(started)
			<-release
			return &fakeDB{dialect: db.PostgresDialect{}, driver: "postgres"}, nil
		}
		return &fakeDB{dialect: db.SQLiteDialect{}, driver: "sqlite"}, nil
	}
	f := NewFactory(testConfig(), open, logger)
	t.Cleanup(func() { _ = f.Close() })

	def, err := f.Default(context.Background())
	require.NoError(t, err)

	done := make(chan *Helper)
	go func() {
		h, err := f.Helper(context.Background(), "reports")
		assert.NoError(t, err)
		done <- h
	}()
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	again, err := f.Default(ctx)
	require.NoError(t, err)
	require.Same(t, def, again)

	// a second caller for the opening name waits on it and honours ctx
	short, cancelShort := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancelShort()
	_, err = f.Helper(short, "reports")
	require.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	reports := <-done
	require.NotNil(t, reports)

	cached, err := f.Helper(context.Background(), "reports")
	require.NoError(t, err)
	require.Same(t, reports, cached)
}

func TestFactory_CloseDuringOpen(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	fake := &fakeDB{dialect: db.PostgresDialect{}, driver: "postgres"}
	open := func(context.Context, config.Settings, db.Options) (db.DB, error) {
		close(started)
		<-release
		return fake, nil
	}
	f := NewFactory(testConfig(), open, logger)

	errc := make(chan error)
	go func() {
		_, err := f.Helper(context.Background(), "reports")
		errc <- err
	}()
	<-started

	closed := make(chan error)
	go func() { closed <- f.Close() }()

	require.Eventually(t, func() bool {
		f.mu.Lock()
		defer f.mu.Unlock()
		return f.closed
	}, time.Second, time.Millisecond)
	close(release)

	require.ErrorIs(t, <-errc, ErrFactoryClosed)
	require.NoError(t, <-closed)
	require.Equal(t, 1, fake.closed)
}

func TestFactory_SqliteEndToEnd(t *testing.T) {
	open := func(ctx context.Context, s config.Settings, opts db.Options) (db.DB, error) {
		dsn, err := s.ConnString()
		if err != nil {
			return nil, err
		}
		return sqlite.Open(ctx, dsn, opts)
	}
	f := NewFactory(testConfig(), open, logger)
	t.Cleanup(func() { _ = f.Close() })

	ctx := context.Background()
	h, err := f.Default(ctx)
	require.NoError(t, err)

	_, err = h.Execute(ctx, `CREATE TABLE test2 (a INTEGER, b TEXT)`)
	require.NoError(t, err)
	_, err = h.Execute(ctx, `INSERT INTO test2 VALUES (1, 'x')`)
	require.NoError(t, err)

	again, err := f.Default(ctx)
	require.NoError(t, err)

	var got []string
	err = again.Select("*").From("test2").Query(ctx, func(r *Row) error {
		s, err := r.String(2)
		got = append(got, s)
		return err
	})
	require.NoError(t, err)
	require.Equal(t, []string{"x"}, got)
}
