//go:build integration

package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	"github.com/chainwatch/event-ingest/internal/model"
	"github.com/chainwatch/event-ingest/internal/store"
)

// StoreSuite exercises the Postgres store against a real database
// given by TEST_DATABASE_URL. It is the only place atomic multi-table
// commit and idempotent reorg resolution are checked: both behaviors
// live in a recursive CTE executed inside a real transaction, which a
// faked driver can't meaningfully stand in for.
type StoreSuite struct {
	suite.Suite
	dsn   string
	store *Store
}

func TestStoreSuite(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping postgres integration suite")
	}
	s := &StoreSuite{dsn: dsn}
	suite.Run(t, s)
}

func (s *StoreSuite) SetupSuite() {
	s.Require().NoError(applyMigrationsUp(s.dsn))
}

func (s *StoreSuite) TearDownSuite() {
	s.Require().NoError(applyMigrationsDown(s.dsn))
}

func (s *StoreSuite) SetupTest() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	st, err := New(ctx, s.dsn, zap.NewNop())
	s.Require().NoError(err)
	s.store = st
	s.Require().NoError(s.store.WipeDB(ctx))
}

func (s *StoreSuite) TearDownTest() {
	if s.store != nil {
		s.store.Close()
	}
}

func applyMigrationsUp(dsn string) error {
	m, err := newMigrator(dsn)
	if err != nil {
		return err
	}
	defer func() { _ = closeMigrator(m) }()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}

func applyMigrationsDown(dsn string) error {
	m, err := newMigrator(dsn)
	if err != nil {
		return err
	}
	defer func() { _ = closeMigrator(m) }()

	if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate down: %w", err)
	}
	return nil
}

func newMigrator(dsn string) (*migrate.Migrate, error) {
	root, err := moduleRoot()
	if err != nil {
		return nil, err
	}
	sourceURL := fmt.Sprintf("file://%s", filepath.ToSlash(filepath.Join(root, "migrations", "postgres")))
	m, err := migrate.New(sourceURL, dsn)
	if err != nil {
		return nil, fmt.Errorf("init migrate: %w", err)
	}
	return m, nil
}

func closeMigrator(m *migrate.Migrate) error {
	if m == nil {
		return nil
	}
	srcErr, dbErr := m.Close()
	if srcErr != nil {
		return fmt.Errorf("close migrator source: %w", srcErr)
	}
	if dbErr != nil {
		return fmt.Errorf("close migrator database: %w", dbErr)
	}
	return nil
}

func moduleRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get working dir: %w", err)
	}
	for {
		if _, statErr := os.Stat(filepath.Join(dir, "go.mod")); statErr == nil {
			return dir, nil
		}
		next := filepath.Dir(dir)
		if next == dir {
			return "", fmt.Errorf("go.mod not found from %s", dir)
		}
		dir = next
	}
}

func testBlock(height uint32, hash, parentHash string) model.Block {
	return model.Block{
		BlockHash:            hash,
		IndexBlockHash:       hash,
		ParentIndexBlockHash: parentHash,
		ParentBlockHash:      parentHash,
		ParentMicroblockHash: "0x00",
		BlockHeight:          height,
		BurnBlockTime:        1700000000,
		BurnBlockHash:        fmt.Sprintf("0xburn%d", height),
		BurnBlockHeight:      height,
		MinerTxID:            fmt.Sprintf("0xminer%d", height),
		Canonical:            true,
	}
}

func testTx(txID string, height uint32, indexBlockHash string) model.Transaction {
	tx := model.Transaction{}
	tx.TxID = txID
	tx.TxIndex = 0
	tx.Nonce = 1
	tx.TypeID = model.TxPayloadTokenTransfer
	tx.SenderAddress = "SP000000000000000000002Q6VF78"
	tx.Fee = decimal.NewFromInt(180)
	tx.AnchorMode = 3
	tx.PostConditionMode = 1
	tx.RawTx = []byte{0x00}
	tx.EventCount = 0
	tx.Canonical = true
	tx.OriginHashMode = 1
	tx.CoreTx.Status = model.TxStatusSuccess
	tx.BlockHeight = height
	tx.IndexBlockHash = indexBlockHash
	return tx
}

// TestUpdate_CommitsAllTablesAtomically verifies that one block update
// carrying a block and a transaction lands both rows together. It does
// not exercise a failing update or the events table.
func (s *StoreSuite) TestUpdate_CommitsAllTablesAtomically() {
	ctx := context.Background()
	block := testBlock(100, "0xblock100", "0xgenesis")
	tx := testTx("0xtx1", 100, block.IndexBlockHash)

	err := s.store.Update(ctx, store.BlockUpdate{
		Block:        block,
		Transactions: []model.Transaction{tx},
	})
	s.Require().NoError(err)

	var blockCount, txCount int
	s.Require().NoError(s.store.pool.QueryRow(ctx, "SELECT count(*) FROM blocks WHERE index_block_hash = $1", block.IndexBlockHash).Scan(&blockCount))
	s.Require().NoError(s.store.pool.QueryRow(ctx, "SELECT count(*) FROM transactions WHERE index_block_hash = $1", block.IndexBlockHash).Scan(&txCount))
	s.Equal(1, blockCount)
	s.Equal(1, txCount)
}

// TestUpdate_ReorgFlipsCanonicalLineage verifies that committing a
// competing block at the same height re-resolves which lineage is
// canonical, and that re-applying the same update is idempotent.
func (s *StoreSuite) TestUpdate_ReorgFlipsCanonicalLineage() {
	ctx := context.Background()

	genesis := testBlock(1, "0xgenesis", "0xnone")
	s.Require().NoError(s.store.Update(ctx, store.BlockUpdate{Block: genesis}))

	forkA := testBlock(2, "0xforkA", genesis.IndexBlockHash)
	s.Require().NoError(s.store.Update(ctx, store.BlockUpdate{Block: forkA}))

	txA := testTx("0xtxA", 2, forkA.IndexBlockHash)
	s.Require().NoError(s.store.Update(ctx, store.BlockUpdate{
		Block:        forkA,
		Transactions: []model.Transaction{txA},
	}))

	s.assertCanonical(ctx, forkA.IndexBlockHash, true)

	forkB := testBlock(2, "0xforkB", genesis.IndexBlockHash)
	s.Require().NoError(s.store.Update(ctx, store.BlockUpdate{Block: forkB}))

	s.assertCanonical(ctx, forkA.IndexBlockHash, false)
	s.assertCanonical(ctx, forkB.IndexBlockHash, true)

	var txCanonical bool
	s.Require().NoError(s.store.pool.QueryRow(ctx,
		"SELECT canonical FROM transactions WHERE tx_id = $1 AND index_block_hash = $2",
		txA.TxID, forkA.IndexBlockHash,
	).Scan(&txCanonical))
	s.False(txCanonical, "forkA's transaction must follow its block out of the canonical lineage")

	// Re-applying forkB's update is idempotent: the canonical flags
	// must not flip again.
	s.Require().NoError(s.store.Update(ctx, store.BlockUpdate{Block: forkB}))
	s.assertCanonical(ctx, forkB.IndexBlockHash, true)
}

func (s *StoreSuite) assertCanonical(ctx context.Context, indexBlockHash string, want bool) {
	var canonical bool
	s.Require().NoError(s.store.pool.QueryRow(ctx,
		"SELECT canonical FROM blocks WHERE index_block_hash = $1", indexBlockHash,
	).Scan(&canonical))
	s.Equal(want, canonical, "canonical flag for %s", indexBlockHash)
}

func (s *StoreSuite) TestWipeDBAndIsEmpty() {
	ctx := context.Background()

	empty, err := s.store.IsEmpty(ctx)
	s.Require().NoError(err)
	s.True(empty)

	s.Require().NoError(s.store.Update(ctx, store.BlockUpdate{Block: testBlock(1, "0xa", "0xgenesis")}))

	empty, err = s.store.IsEmpty(ctx)
	s.Require().NoError(err)
	s.False(empty)

	s.Require().NoError(s.store.WipeDB(ctx))

	empty, err = s.store.IsEmpty(ctx)
	s.Require().NoError(err)
	s.True(empty)
}
