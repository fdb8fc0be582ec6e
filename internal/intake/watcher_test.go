package intake

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/allisson/edibox/internal/edi"
	transactionDomain "github.com/allisson/edibox/internal/transaction/domain"
	"github.com/allisson/edibox/internal/transaction/usecase"
)

const sampleX12 = "ISA*00*          *00*          *ZZ*ACMESENDER     *ZZ*WIDGETRECV     *240115*0930*U*00401*000000042*0*P*>~" +
	"GS*PO*ACMESENDER*WIDGETRECV*20240115*0930*42*X*004010~" +
	"ST*850*0001~BEG*00*NE*PO4500*20240115~N1*BY*Acme Retail~N1*SE*Widgets Inc~SE*5*0001~GE*1*42~IEA*1*000000042~"

type fakeCreator struct {
	mu     sync.Mutex
	err    error
	inputs []usecase.CreateInput
	actors []string
}

func (f *fakeCreator) Create(ctx context.Context, input usecase.CreateInput) (*transactionDomain.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.inputs = append(f.inputs, input)
	f.actors = append(f.actors, transactionDomain.ActorFrom(ctx))
	return &transactionDomain.Transaction{ID: uuid.Must(uuid.NewV7()), DocumentType: input.DocumentType}, nil
}

func (f *fakeCreator) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.inputs)
}

func writeFile(t *testing.T, dir, name, data string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))
	return path
}

func TestBuildInput(t *testing.T) {
	t.Run("Success_X12", func(t *testing.T) {
		input := BuildInput("po.edi", []byte(sampleX12))

		assert.Equal(t, transactionDomain.StageIntake, input.Stage)
		assert.Equal(t, "po.edi", input.Filename)
		assert.Equal(t, "Acme Retail", input.PartnerName)
		assert.Equal(t, "850", input.DocumentType)
		assert.Equal(t, "PO4500", input.DocumentNumber)
		require.NotNil(t, input.Metadata)
		assert.Equal(t, edi.FormatX12, input.Metadata.Format)
	})

	t.Run("Success_NonEDI", func(t *testing.T) {
		input := BuildInput("order.json", []byte(`{"po":"1"}`))

		assert.Equal(t, "unknown", input.PartnerName)
		assert.Equal(t, "JSON", input.DocumentType)
		assert.Nil(t, input.Metadata)
		assert.Equal(t, []byte(`{"po":"1"}`), input.Content)
	})
}

func TestWatcher_Scan(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_IngestsAndRemoves", func(t *testing.T) {
		dir := t.TempDir()
		creator := &fakeCreator{}
		watcher, err := NewWatcher(Config{Dir: dir}, creator, nil)
		require.NoError(t, err)

		path := writeFile(t, dir, "po.edi", sampleX12)
		writeFile(t, dir, ".hidden", sampleX12)

		created, err := watcher.Scan(ctx)

		require.NoError(t, err)
		assert.Equal(t, 1, created)
		assert.NoFileExists(t, path)
		assert.Equal(t, []string{Actor}, creator.actors)
	})

	t.Run("Error_CreateFailsQuarantines", func(t *testing.T) {
		dir := t.TempDir()
		creator := &fakeCreator{err: assert.AnError}
		watcher, err := NewWatcher(Config{Dir: dir}, creator, nil)
		require.NoError(t, err)

		path := writeFile(t, dir, "po.edi", sampleX12)

		created, err := watcher.Scan(ctx)

		require.NoError(t, err)
		assert.Zero(t, created)
		assert.NoFileExists(t, path)
		assert.FileExists(t, filepath.Join(dir, "failed", "po.edi"))
	})

	t.Run("Error_EmptyAndOversizedQuarantined", func(t *testing.T) {
		dir := t.TempDir()
		creator := &fakeCreator{}
		watcher, err := NewWatcher(Config{Dir: dir, MaxBytes: 16}, creator, nil)
		require.NoError(t, err)

		writeFile(t, dir, "empty.edi", "")
		writeFile(t, dir, "big.edi", sampleX12)

		created, err := watcher.Scan(ctx)

		require.NoError(t, err)
		assert.Zero(t, created)
		assert.FileExists(t, filepath.Join(dir, "failed", "empty.edi"))
		assert.FileExists(t, filepath.Join(dir, "failed", "big.edi"))
	})

	t.Run("Error_MissingDirectory", func(t *testing.T) {
		_, err := NewWatcher(Config{}, &fakeCreator{}, nil)
		assert.Error(t, err)
	})
}

func TestWatcher_Run(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	creator := &fakeCreator{}
	watcher, err := NewWatcher(Config{Dir: dir, Settle: 20 * time.Millisecond}, creator, nil)
	require.NoError(t, err)

	writeFile(t, dir, "existing.edi", sampleX12)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- watcher.Run(ctx)
	}()

	require.Eventually(t, func() bool { return creator.count() == 1 }, 2*time.Second, 10*time.Millisecond)

	path := writeFile(t, dir, "dropped.edi", sampleX12)

	require.Eventually(t, func() bool { return creator.count() == 2 }, 2*time.Second, 10*time.Millisecond)
	assert.Eventually(t, func() bool {
		_, err := os.Stat(path)
		return os.IsNotExist(err)
	}, time.Second, 10*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}
