package usecase

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocloud.dev/blob/memblob"

	"github.com/allisson/edibox/internal/content"
	"github.com/allisson/edibox/internal/database"
	"github.com/allisson/edibox/internal/edi"
	apperrors "github.com/allisson/edibox/internal/errors"
	"github.com/allisson/edibox/internal/lock"
	transactionDomain "github.com/allisson/edibox/internal/transaction/domain"
	"github.com/allisson/edibox/internal/transaction/repository"
)

const sampleX12 = "ISA*00*          *00*          *ZZ*SENDER         *ZZ*RECEIVER       " +
	"*240305*1407*U*00401*000000001*0*P*>~GS*PO*SENDER*RECEIVER*20240305*1407*1*X*004010~" +
	"ST*850*0001~BEG*00*SA*PO100**20240305~N1*BY*Acme~N1*SE*Widgets~SE*5*0001~GE*1*1~IEA*1*000000001~"

type fakeTransmitter struct {
	mu    sync.Mutex
	calls int
	err   error
	block bool
	sent  [][]byte
}

func (f *fakeTransmitter) Transmit(ctx context.Context, t *transactionDomain.Transaction, data []byte) (string, error) {
	f.mu.Lock()
	f.calls++
	err, block := f.err, f.block
	f.sent = append(f.sent, data)
	f.mu.Unlock()

	if block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if err != nil {
		return "", err
	}
	return "receipt-" + t.ID.String(), nil
}

func (f *fakeTransmitter) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// flakyHistoryRepository fails every Append while fail is set.
type flakyHistoryRepository struct {
	*repository.MemoryHistoryRepository
	fail bool
}

func (f *flakyHistoryRepository) Append(ctx context.Context, entry *transactionDomain.HistoryEntry) error {
	if f.fail {
		return assert.AnError
	}
	return f.MemoryHistoryRepository.Append(ctx, entry)
}

// fakeSigner signs with the entry id so verification can be forced to fail by editing it.
type fakeSigner struct{}

func (fakeSigner) Sign(entry *transactionDomain.HistoryEntry) ([]byte, error) {
	return []byte(entry.ID.String() + string(entry.Action)), nil
}

func (fakeSigner) Verify(entry *transactionDomain.HistoryEntry) error {
	if string(entry.Signature) != entry.ID.String()+string(entry.Action) {
		return transactionDomain.ErrSignatureInvalid
	}
	return nil
}

type fixture struct {
	uc           *lifecycleUseCase
	store        *content.Store
	transactions *repository.MemoryTransactionRepository
	history      *flakyHistoryRepository
	transmitter  *fakeTransmitter
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := content.NewStore(memblob.OpenBucket(nil), 0)
	t.Cleanup(func() {
		_ = store.Close()
	})

	f := &fixture{
		store:        store,
		transactions: repository.NewMemoryTransactionRepository(),
		history:      &flakyHistoryRepository{MemoryHistoryRepository: repository.NewMemoryHistoryRepository()},
		transmitter:  &fakeTransmitter{},
	}
	f.uc = newLifecycleUseCase(
		database.NewJournalTxManager(),
		f.transactions,
		f.history,
		store,
		lock.NewKeyedMutex(),
		f.transmitter,
		nil,
		time.Second,
		nil,
	)
	return f
}

func (f *fixture) exists(t *testing.T, p string) bool {
	t.Helper()
	ok, err := f.store.Exists(context.Background(), p)
	require.NoError(t, err)
	return ok
}

func (f *fixture) assertHash(t *testing.T, tx *transactionDomain.Transaction) {
	t.Helper()
	hash, err := f.store.Hash(context.Background(), tx.ContentPath)
	require.NoError(t, err)
	assert.Equal(t, tx.ContentHash, hash)
}

func (f *fixture) actions(t *testing.T, id uuid.UUID) []transactionDomain.Action {
	t.Helper()
	entries, err := f.history.ListByTransaction(context.Background(), id)
	require.NoError(t, err)
	actions := make([]transactionDomain.Action, 0, len(entries))
	for _, e := range entries {
		actions = append(actions, e.Action)
	}
	return actions
}

func (f *fixture) createIntake(t *testing.T) *transactionDomain.Transaction {
	t.Helper()
	tx, err := f.uc.Create(context.Background(), CreateInput{
		Stage:          transactionDomain.StageIntake,
		PartnerName:    gofakeit.Company(),
		DocumentType:   "850",
		DocumentNumber: "DOC-" + gofakeit.DigitN(6),
		Content:        []byte(sampleX12),
	})
	require.NoError(t, err)
	return tx
}

func outboxInput() CreateInput {
	return CreateInput{
		Stage:          transactionDomain.StageOutbox,
		PartnerName:    "Acme",
		DocumentType:   "850",
		DocumentNumber: "PO100",
		Metadata: &edi.Metadata{
			Format:         edi.FormatX12,
			DocumentNumber: "PO100",
			BuyerName:      "Acme",
			SellerName:     "Widgets",
		},
	}
}

func TestLifecycleUseCase_Create(t *testing.T) {
	ctx := transactionDomain.WithActor(context.Background(), "cli")

	t.Run("Success_IntakeWithContent", func(t *testing.T) {
		f := newFixture(t)

		tx, err := f.uc.Create(ctx, CreateInput{
			Stage:        transactionDomain.StageIntake,
			PartnerName:  " Acme ",
			DocumentType: "850",
			Content:      []byte(sampleX12),
		})

		require.NoError(t, err)
		assert.Equal(t, "Acme", tx.PartnerName)
		assert.Equal(t, transactionDomain.StatusDraft, tx.Status)
		assert.Equal(t, "intake/"+tx.ID.String()+".edi", tx.ContentPath)
		assert.Equal(t, int64(len(sampleX12)), tx.ContentSize)
		assert.True(t, strings.HasPrefix(tx.Filename, "850_"))
		f.assertHash(t, tx)

		entries, err := f.history.ListByTransaction(ctx, tx.ID)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, transactionDomain.ActionCreated, entries[0].Action)
		assert.Equal(t, transactionDomain.StageIntake, entries[0].ToStage)
		assert.Equal(t, "cli", entries[0].Actor)
		assert.Contains(t, entries[0].Details, "initial")
	})

	t.Run("Success_OutboxGeneratesContent", func(t *testing.T) {
		f := newFixture(t)

		tx, err := f.uc.Create(ctx, outboxInput())
		require.NoError(t, err)

		data, err := f.store.Read(ctx, tx.ContentPath)
		require.NoError(t, err)
		assert.Equal(t, edi.FormatX12, edi.Detect(data))
		assert.Contains(t, string(data), "PO100")
		f.assertHash(t, tx)
	})

	t.Run("Success_JSONContentExtension", func(t *testing.T) {
		f := newFixture(t)

		tx, err := f.uc.Create(ctx, CreateInput{
			Stage:        transactionDomain.StageIntake,
			PartnerName:  "Acme",
			DocumentType: "850",
			Content:      []byte(`{"po":"PO100"}`),
		})

		require.NoError(t, err)
		assert.True(t, strings.HasSuffix(tx.ContentPath, ".json"))
	})

	t.Run("Error_InvalidStage", func(t *testing.T) {
		f := newFixture(t)
		input := outboxInput()
		input.Stage = transactionDomain.StageSent

		_, err := f.uc.Create(ctx, input)

		assert.ErrorIs(t, err, transactionDomain.ErrInvalidCreateStage)
		assert.ErrorIs(t, err, apperrors.ErrInvalidState)
	})

	t.Run("Error_MissingFields", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.uc.Create(ctx, CreateInput{Stage: transactionDomain.StageOutbox})

		require.ErrorIs(t, err, apperrors.ErrInvalidInput)
		fields := make([]string, 0)
		for _, p := range apperrors.Problems(err) {
			fields = append(fields, p.Field)
		}
		assert.ElementsMatch(t, []string{"partner_name", "document_type", "metadata"}, fields)

		items, err := f.store.List(ctx, "outbox")
		require.NoError(t, err)
		assert.Empty(t, items)
	})

	t.Run("Error_HistoryFailureRemovesContent", func(t *testing.T) {
		f := newFixture(t)
		f.history.fail = true

		_, err := f.uc.Create(ctx, outboxInput())
		require.ErrorIs(t, err, assert.AnError)

		items, err := f.store.List(ctx, "outbox")
		require.NoError(t, err)
		assert.Empty(t, items)

		count, err := f.transactions.Count(ctx, transactionDomain.TransactionFilter{})
		require.NoError(t, err)
		assert.Zero(t, count)
	})
}

func TestLifecycleUseCase_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_FieldsOnly", func(t *testing.T) {
		f := newFixture(t)
		tx := f.createIntake(t)
		partner := "Globex"
		ready := transactionDomain.StatusReady

		updated, err := f.uc.Update(ctx, tx.ID, UpdateInput{PartnerName: &partner, Status: &ready})

		require.NoError(t, err)
		assert.Equal(t, "Globex", updated.PartnerName)
		assert.Equal(t, transactionDomain.StatusReady, updated.Status)
		assert.Equal(t, tx.ContentHash, updated.ContentHash)

		entries, err := f.history.ListByTransaction(ctx, tx.ID)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, transactionDomain.ActionEdited, entries[1].Action)
		assert.Equal(t, map[string]any{"partner_name": "Globex", "status": "ready"}, entries[1].Details["new"])
	})

	t.Run("Success_NoChangesRecordsNothing", func(t *testing.T) {
		f := newFixture(t)
		tx := f.createIntake(t)

		_, err := f.uc.Update(ctx, tx.ID, UpdateInput{PartnerName: &tx.PartnerName})

		require.NoError(t, err)
		assert.Len(t, f.actions(t, tx.ID), 1)
	})

	t.Run("Success_ReplaceContentSameFormat", func(t *testing.T) {
		f := newFixture(t)
		tx := f.createIntake(t)
		replacement := []byte(strings.Replace(sampleX12, "PO100", "PO200", 1))

		updated, err := f.uc.Update(ctx, tx.ID, UpdateInput{Content: replacement})

		require.NoError(t, err)
		assert.Equal(t, tx.ContentPath, updated.ContentPath)
		assert.Equal(t, content.HashBytes(replacement), updated.ContentHash)
		f.assertHash(t, updated)
		assert.False(t, f.exists(t, tx.ContentPath+backupSuffix))
	})

	t.Run("Success_ReplaceContentNewFormat", func(t *testing.T) {
		f := newFixture(t)
		tx := f.createIntake(t)

		updated, err := f.uc.Update(ctx, tx.ID, UpdateInput{Content: []byte(`<po>PO100</po>`)})

		require.NoError(t, err)
		assert.True(t, strings.HasSuffix(updated.ContentPath, ".xml"))
		assert.False(t, f.exists(t, tx.ContentPath))
		f.assertHash(t, updated)
	})

	t.Run("Success_OutboxMetadataRegeneratesContent", func(t *testing.T) {
		f := newFixture(t)
		tx, err := f.uc.Create(ctx, outboxInput())
		require.NoError(t, err)

		md := tx.Metadata.Clone()
		md.SellerName = "Initech"
		updated, err := f.uc.Update(ctx, tx.ID, UpdateInput{Metadata: md})

		require.NoError(t, err)
		assert.NotEqual(t, tx.ContentHash, updated.ContentHash)
		data, err := f.store.Read(ctx, updated.ContentPath)
		require.NoError(t, err)
		assert.Contains(t, string(data), "Initech")
		f.assertHash(t, updated)
	})

	t.Run("Error_HistoryFailureRestoresContent", func(t *testing.T) {
		f := newFixture(t)
		tx := f.createIntake(t)
		f.history.fail = true

		_, err := f.uc.Update(ctx, tx.ID, UpdateInput{Content: []byte(strings.Replace(sampleX12, "Acme", "Evil", 1))})
		require.ErrorIs(t, err, assert.AnError)

		stored, err := f.transactions.FindByID(ctx, tx.ID)
		require.NoError(t, err)
		assert.Equal(t, tx.ContentHash, stored.ContentHash)
		f.assertHash(t, stored)
		assert.False(t, f.exists(t, tx.ContentPath+backupSuffix))
	})

	t.Run("Error_StatusNotEditable", func(t *testing.T) {
		f := newFixture(t)
		tx := f.createIntake(t)
		processing := transactionDomain.StatusProcessing

		_, err := f.uc.Update(ctx, tx.ID, UpdateInput{Status: &processing})

		assert.ErrorIs(t, err, transactionDomain.ErrInvalidStatus)
	})

	t.Run("Error_StageNotEditable", func(t *testing.T) {
		f := newFixture(t)
		tx := f.createIntake(t)
		_, err := f.uc.Move(ctx, tx.ID, transactionDomain.StageAccepted)
		require.NoError(t, err)
		name := "renamed.edi"

		_, err = f.uc.Update(ctx, tx.ID, UpdateInput{Filename: &name})

		assert.ErrorIs(t, err, transactionDomain.ErrNotEditable)
	})

	t.Run("Error_NotFound", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.uc.Update(ctx, uuid.Must(uuid.NewV7()), UpdateInput{})

		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})
}

func TestLifecycleUseCase_Move(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_RelocatesContent", func(t *testing.T) {
		f := newFixture(t)
		tx := f.createIntake(t)

		moved, err := f.uc.Move(ctx, tx.ID, transactionDomain.StageAccepted)

		require.NoError(t, err)
		assert.Equal(t, transactionDomain.StageAccepted, moved.Stage)
		assert.Equal(t, "accepted/"+tx.ID.String()+".edi", moved.ContentPath)
		require.NotNil(t, moved.AcceptedAt)
		assert.False(t, f.exists(t, tx.ContentPath))
		f.assertHash(t, moved)

		entries, err := f.history.ListByTransaction(ctx, tx.ID)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, transactionDomain.StageIntake, entries[1].FromStage)
		assert.Equal(t, transactionDomain.StageAccepted, entries[1].ToStage)
		assert.Equal(t, "manual_move", entries[1].Details["reason"])
	})

	t.Run("Error_SameStage", func(t *testing.T) {
		f := newFixture(t)
		tx := f.createIntake(t)

		_, err := f.uc.Move(ctx, tx.ID, transactionDomain.StageIntake)

		assert.ErrorIs(t, err, transactionDomain.ErrSameStage)
		assert.ErrorIs(t, err, apperrors.ErrInvalidState)
	})

	t.Run("Error_InvalidTarget", func(t *testing.T) {
		f := newFixture(t)
		tx := f.createIntake(t)

		_, err := f.uc.Move(ctx, tx.ID, transactionDomain.Stage("archive"))

		assert.ErrorIs(t, err, transactionDomain.ErrInvalidTargetStage)
		assert.ErrorIs(t, err, apperrors.ErrInvalidState)
	})

	t.Run("Error_FromDiscarded", func(t *testing.T) {
		f := newFixture(t)
		tx := f.createIntake(t)
		require.NoError(t, f.uc.Delete(ctx, tx.ID, false))

		_, err := f.uc.Move(ctx, tx.ID, transactionDomain.StageIntake)

		assert.ErrorIs(t, err, transactionDomain.ErrMoveFromDiscarded)
	})

	t.Run("Success_MoveOutboxToSentMarksSent", func(t *testing.T) {
		f := newFixture(t)
		tx, err := f.uc.Create(ctx, outboxInput())
		require.NoError(t, err)

		moved, err := f.uc.Move(ctx, tx.ID, transactionDomain.StageSent)

		require.NoError(t, err)
		assert.Equal(t, transactionDomain.StageSent, moved.Stage)
		assert.Equal(t, transactionDomain.StatusSent, moved.Status)
		require.NotNil(t, moved.SentAt)
		f.assertHash(t, moved)
		assert.Equal(t, 0, f.transmitter.Calls())
	})

	t.Run("Error_MoveOutboxToSentRequiresDocumentFields", func(t *testing.T) {
		f := newFixture(t)
		input := outboxInput()
		input.DocumentNumber = ""
		input.Metadata = &edi.Metadata{Format: edi.FormatX12, DocumentTypeCode: "850"}
		tx, err := f.uc.Create(ctx, input)
		require.NoError(t, err)

		_, err = f.uc.Send(ctx, tx.ID)
		require.ErrorIs(t, err, apperrors.ErrInvalidInput)

		_, err = f.uc.Move(ctx, tx.ID, transactionDomain.StageSent)

		require.ErrorIs(t, err, apperrors.ErrInvalidInput)
		var validationErr *apperrors.ValidationError
		require.ErrorAs(t, err, &validationErr)
		fields := make([]string, 0, len(validationErr.Problems))
		for _, p := range validationErr.Problems {
			fields = append(fields, p.Field)
		}
		assert.Contains(t, fields, "document_number")

		stored, err := f.transactions.FindByID(ctx, tx.ID)
		require.NoError(t, err)
		assert.Equal(t, transactionDomain.StageOutbox, stored.Stage)
		assert.NotEqual(t, transactionDomain.StatusSent, stored.Status)
		assert.Nil(t, stored.SentAt)
		assert.False(t, f.exists(t, "sent/"+tx.ID.String()+".edi"))
		assert.Equal(t, []transactionDomain.Action{transactionDomain.ActionCreated}, f.actions(t, tx.ID))
	})

	t.Run("Error_HistoryFailureRollsBack", func(t *testing.T) {
		f := newFixture(t)
		tx := f.createIntake(t)
		f.history.fail = true

		_, err := f.uc.Move(ctx, tx.ID, transactionDomain.StageOutbox)
		require.ErrorIs(t, err, assert.AnError)

		stored, err := f.transactions.FindByID(ctx, tx.ID)
		require.NoError(t, err)
		assert.Equal(t, transactionDomain.StageIntake, stored.Stage)
		assert.Equal(t, tx.ContentPath, stored.ContentPath)
		assert.True(t, f.exists(t, tx.ContentPath))
		assert.False(t, f.exists(t, "outbox/"+tx.ID.String()+".edi"))
		f.assertHash(t, stored)
	})

	t.Run("Error_TamperedContentNotMoved", func(t *testing.T) {
		f := newFixture(t)
		tx := f.createIntake(t)
		_, err := f.store.Write(ctx, tx.ContentPath, []byte("tampered"))
		require.NoError(t, err)

		_, err = f.uc.Move(ctx, tx.ID, transactionDomain.StageAccepted)

		assert.ErrorIs(t, err, transactionDomain.ErrContentMismatch)
		assert.False(t, f.exists(t, "accepted/"+tx.ID.String()+".edi"))
	})

	t.Run("Success_ConcurrentMovesOneWins", func(t *testing.T) {
		f := newFixture(t)
		tx := f.createIntake(t)

		const workers = 8
		errs := make([]error, workers)
		var wg sync.WaitGroup
		for i := range workers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, errs[i] = f.uc.Move(ctx, tx.ID, transactionDomain.StageAccepted)
			}()
		}
		wg.Wait()

		succeeded := 0
		for _, err := range errs {
			if err == nil {
				succeeded++
				continue
			}
			assert.ErrorIs(t, err, transactionDomain.ErrSameStage)
		}
		assert.Equal(t, 1, succeeded)
		assert.Equal(t, []transactionDomain.Action{
			transactionDomain.ActionCreated,
			transactionDomain.ActionMoved,
		}, f.actions(t, tx.ID))
	})
}

func TestLifecycleUseCase_Accept(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		f := newFixture(t)
		tx := f.createIntake(t)

		accepted, err := f.uc.Accept(ctx, tx.ID)

		require.NoError(t, err)
		assert.Equal(t, transactionDomain.StageAccepted, accepted.Stage)
		f.assertHash(t, accepted)
	})

	t.Run("Error_EmptyContent", func(t *testing.T) {
		f := newFixture(t)
		tx, err := f.uc.Create(ctx, CreateInput{
			Stage:        transactionDomain.StageIntake,
			PartnerName:  "Acme",
			DocumentType: "850",
			Content:      []byte("   "),
		})
		require.NoError(t, err)

		_, err = f.uc.Accept(ctx, tx.ID)

		require.ErrorIs(t, err, apperrors.ErrInvalidInput)
		assert.Equal(t, []apperrors.Problem{{Field: "content", Message: "content is empty"}}, apperrors.Problems(err))
	})

	t.Run("Error_NotInIntake", func(t *testing.T) {
		f := newFixture(t)
		tx, err := f.uc.Create(ctx, outboxInput())
		require.NoError(t, err)

		_, err = f.uc.Accept(ctx, tx.ID)

		assert.ErrorIs(t, err, transactionDomain.ErrNotInIntake)
	})
}

func TestLifecycleUseCase_Send(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_OutboxScenario", func(t *testing.T) {
		f := newFixture(t)
		tx, err := f.uc.Create(ctx, outboxInput())
		require.NoError(t, err)

		sent, err := f.uc.Send(ctx, tx.ID)

		require.NoError(t, err)
		assert.Equal(t, transactionDomain.StageSent, sent.Stage)
		assert.Equal(t, transactionDomain.StatusSent, sent.Status)
		require.NotNil(t, sent.SentAt)
		assert.False(t, f.exists(t, tx.ContentPath))
		f.assertHash(t, sent)
		assert.Equal(t, 1, f.transmitter.Calls())

		entries, err := f.history.ListByTransaction(ctx, tx.ID)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, transactionDomain.ActionSent, entries[1].Action)
		assert.Equal(t, "receipt-"+tx.ID.String(), entries[1].Details["receipt"])

		problems, err := f.uc.AcknowledgmentErrors(ctx, tx.ID)
		require.NoError(t, err)
		require.Len(t, problems, 1)
		assert.Equal(t, "no acknowledgment received yet", problems[0].Message)
		assert.Equal(t, transactionDomain.SeverityInfo, problems[0].Severity)
	})

	t.Run("Error_MissingDocumentNumberCopiesNothing", func(t *testing.T) {
		f := newFixture(t)
		input := outboxInput()
		input.DocumentNumber = ""
		tx, err := f.uc.Create(ctx, input)
		require.NoError(t, err)

		_, err = f.uc.Send(ctx, tx.ID)

		require.ErrorIs(t, err, apperrors.ErrInvalidInput)
		assert.Equal(t, "document_number", apperrors.Problems(err)[0].Field)
		assert.Zero(t, f.transmitter.Calls())

		items, err := f.store.List(ctx, "sent")
		require.NoError(t, err)
		assert.Empty(t, items)

		stored, err := f.transactions.FindByID(ctx, tx.ID)
		require.NoError(t, err)
		assert.Equal(t, transactionDomain.StatusDraft, stored.Status)
	})

	t.Run("Error_TransmissionFailureMarksFailed", func(t *testing.T) {
		f := newFixture(t)
		f.transmitter.err = assert.AnError
		tx, err := f.uc.Create(ctx, outboxInput())
		require.NoError(t, err)

		_, err = f.uc.Send(ctx, tx.ID)

		require.ErrorIs(t, err, transactionDomain.ErrSendFailed)
		assert.ErrorIs(t, err, apperrors.ErrTransmission)

		stored, err := f.transactions.FindByID(ctx, tx.ID)
		require.NoError(t, err)
		assert.Equal(t, transactionDomain.StageOutbox, stored.Stage)
		assert.Equal(t, transactionDomain.StatusFailed, stored.Status)
		assert.True(t, f.exists(t, tx.ContentPath))

		entries, err := f.history.ListByTransaction(ctx, tx.ID)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, "failed", entries[1].Details["status"])
		assert.Equal(t, assert.AnError.Error(), entries[1].Details["error"])
	})

	t.Run("Success_RetryAfterFailure", func(t *testing.T) {
		f := newFixture(t)
		f.transmitter.err = assert.AnError
		tx, err := f.uc.Create(ctx, outboxInput())
		require.NoError(t, err)
		_, err = f.uc.Send(ctx, tx.ID)
		require.Error(t, err)

		f.transmitter.err = nil
		sent, err := f.uc.Send(ctx, tx.ID)

		require.NoError(t, err)
		assert.Equal(t, transactionDomain.StatusSent, sent.Status)
	})

	t.Run("Error_TimeoutNeverLeavesProcessing", func(t *testing.T) {
		f := newFixture(t)
		f.uc.sendTimeout = 20 * time.Millisecond
		f.transmitter.block = true
		tx, err := f.uc.Create(ctx, outboxInput())
		require.NoError(t, err)

		_, err = f.uc.Send(ctx, tx.ID)

		require.ErrorIs(t, err, transactionDomain.ErrSendFailed)
		stored, err := f.transactions.FindByID(ctx, tx.ID)
		require.NoError(t, err)
		assert.Equal(t, transactionDomain.StatusFailed, stored.Status)
	})

	t.Run("Error_NotSendable", func(t *testing.T) {
		f := newFixture(t)
		tx := f.createIntake(t)

		_, err := f.uc.Send(ctx, tx.ID)

		assert.ErrorIs(t, err, transactionDomain.ErrNotSendable)
	})
}

func TestLifecycleUseCase_DeleteAndRestore(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_SoftDeleteAndRestore", func(t *testing.T) {
		f := newFixture(t)
		tx, err := f.uc.Create(ctx, outboxInput())
		require.NoError(t, err)

		require.NoError(t, f.uc.Delete(ctx, tx.ID, false))
		discarded, err := f.uc.Get(ctx, tx.ID)
		require.NoError(t, err)
		assert.Equal(t, transactionDomain.StageDiscarded, discarded.Stage)
		require.NotNil(t, discarded.DiscardedAt)

		restored, err := f.uc.Restore(ctx, tx.ID)

		require.NoError(t, err)
		assert.Equal(t, transactionDomain.StageOutbox, restored.Stage)
		assert.Nil(t, restored.DiscardedAt)
		f.assertHash(t, restored)
		assert.Equal(t, []transactionDomain.Action{
			transactionDomain.ActionCreated,
			transactionDomain.ActionDeleted,
			transactionDomain.ActionRestored,
		}, f.actions(t, tx.ID))
	})

	t.Run("Error_AlreadyDiscarded", func(t *testing.T) {
		f := newFixture(t)
		tx := f.createIntake(t)
		require.NoError(t, f.uc.Delete(ctx, tx.ID, false))

		err := f.uc.Delete(ctx, tx.ID, false)

		assert.ErrorIs(t, err, transactionDomain.ErrAlreadyDiscarded)
	})

	t.Run("Error_RestoreNotDiscarded", func(t *testing.T) {
		f := newFixture(t)
		tx := f.createIntake(t)

		_, err := f.uc.Restore(ctx, tx.ID)

		assert.ErrorIs(t, err, transactionDomain.ErrNotDiscarded)
	})

	t.Run("Success_PermanentKeepsHistory", func(t *testing.T) {
		f := newFixture(t)
		tx := f.createIntake(t)

		require.NoError(t, f.uc.Delete(ctx, tx.ID, true))

		_, err := f.uc.Get(ctx, tx.ID)
		assert.ErrorIs(t, err, transactionDomain.ErrTransactionNotFound)
		assert.False(t, f.exists(t, tx.ContentPath))

		entries, err := f.uc.History(ctx, tx.ID)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, transactionDomain.ActionPermanentlyDeleted, entries[1].Action)
		assert.Equal(t, tx.Filename, entries[1].Details["filename"])
	})
}

func TestLifecycleUseCase_Acknowledge(t *testing.T) {
	ctx := context.Background()

	sentFixture := func(t *testing.T) (*fixture, *transactionDomain.Transaction) {
		f := newFixture(t)
		tx, err := f.uc.Create(ctx, outboxInput())
		require.NoError(t, err)
		tx, err = f.uc.Send(ctx, tx.ID)
		require.NoError(t, err)
		return f, tx
	}

	t.Run("Success_Accepted", func(t *testing.T) {
		f, tx := sentFixture(t)

		acked, err := f.uc.Acknowledge(ctx, tx.ID, AckInput{Status: transactionDomain.AckAccepted})

		require.NoError(t, err)
		assert.Equal(t, transactionDomain.StatusAcknowledged, acked.Status)
		require.NotNil(t, acked.AcknowledgedAt)

		problems, err := f.uc.AcknowledgmentErrors(ctx, tx.ID)
		require.NoError(t, err)
		assert.Empty(t, problems)
	})

	t.Run("Success_Rejected", func(t *testing.T) {
		f, tx := sentFixture(t)

		acked, err := f.uc.Acknowledge(ctx, tx.ID, AckInput{
			Status:  transactionDomain.AckRejected,
			Message: "duplicate PO",
		})

		require.NoError(t, err)
		assert.Equal(t, transactionDomain.StatusFailed, acked.Status)

		problems, err := f.uc.AcknowledgmentErrors(ctx, tx.ID)
		require.NoError(t, err)
		require.Len(t, problems, 1)
		assert.Equal(t, "duplicate PO", problems[0].Message)
		assert.Equal(t, transactionDomain.SeverityError, problems[0].Severity)
	})

	t.Run("Error_NotSent", func(t *testing.T) {
		f := newFixture(t)
		tx := f.createIntake(t)

		_, err := f.uc.Acknowledge(ctx, tx.ID, AckInput{Status: transactionDomain.AckAccepted})

		assert.ErrorIs(t, err, transactionDomain.ErrNotSent)
	})

	t.Run("Error_InvalidStatus", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.uc.Acknowledge(ctx, uuid.Must(uuid.NewV7()), AckInput{Status: "maybe"})

		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})
}

func TestLifecycleUseCase_ContentIntegrity(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	tx := f.createIntake(t)

	t.Run("Success_ContentVerified", func(t *testing.T) {
		result, err := f.uc.Content(ctx, tx.ID)

		require.NoError(t, err)
		assert.Equal(t, sampleX12, string(result.Content))
		assert.Equal(t, edi.FormatX12, result.Format)
		assert.Equal(t, tx.ContentHash, result.Hash)
		assert.NoError(t, f.uc.VerifyIntegrity(ctx, tx.ID))
	})

	t.Run("Error_Tampered", func(t *testing.T) {
		_, err := f.store.Write(ctx, tx.ContentPath, []byte("tampered"))
		require.NoError(t, err)

		_, err = f.uc.Content(ctx, tx.ID)
		assert.ErrorIs(t, err, apperrors.ErrIntegrity)

		err = f.uc.VerifyIntegrity(ctx, tx.ID)
		assert.ErrorIs(t, err, transactionDomain.ErrContentMismatch)
	})

	t.Run("Success_MissingContentReported", func(t *testing.T) {
		require.NoError(t, f.store.Delete(ctx, tx.ContentPath))

		problems, err := f.uc.ValidateForProcessing(ctx, tx.ID)

		require.NoError(t, err)
		assert.Equal(t, []apperrors.Problem{{Field: "content", Message: "content is missing"}}, problems)
	})

	t.Run("Error_HistoryUnknownTransaction", func(t *testing.T) {
		_, err := f.uc.History(ctx, uuid.Must(uuid.NewV7()))
		assert.ErrorIs(t, err, transactionDomain.ErrTransactionNotFound)
	})
}

func TestLifecycleUseCase_Queries(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	for range 3 {
		f.createIntake(t)
	}
	outbox, err := f.uc.Create(ctx, outboxInput())
	require.NoError(t, err)

	t.Run("Success_ListByStage", func(t *testing.T) {
		page, err := f.uc.ListByStage(ctx, transactionDomain.StageIntake, 0, 0)

		require.NoError(t, err)
		assert.Len(t, page.Items, 3)
		assert.Equal(t, int64(3), page.Total)
		assert.Equal(t, DefaultPageLimit, page.Limit)
	})

	t.Run("Success_LimitCapped", func(t *testing.T) {
		page, err := f.uc.Search(ctx, "", -5, 1000)

		require.NoError(t, err)
		assert.Equal(t, 0, page.Offset)
		assert.Equal(t, MaxPageLimit, page.Limit)
		assert.Equal(t, int64(4), page.Total)
	})

	t.Run("Success_SearchDocumentNumber", func(t *testing.T) {
		page, err := f.uc.Search(ctx, "po100", 0, 10)

		require.NoError(t, err)
		require.Len(t, page.Items, 1)
		assert.Equal(t, outbox.ID, page.Items[0].ID)
	})

	t.Run("Success_ListByPartner", func(t *testing.T) {
		page, err := f.uc.ListByPartner(ctx, "Acme", 0, 10)

		require.NoError(t, err)
		assert.Equal(t, int64(1), page.Total)
	})

	t.Run("Error_InvalidStage", func(t *testing.T) {
		_, err := f.uc.ListByStage(ctx, "archive", 0, 10)
		assert.ErrorIs(t, err, transactionDomain.ErrInvalidStage)
	})

	t.Run("Success_AllFolderStats", func(t *testing.T) {
		stats, err := f.uc.AllFolderStats(ctx)

		require.NoError(t, err)
		require.Len(t, stats, len(transactionDomain.Stages))
		assert.Equal(t, transactionDomain.StageIntake, stats[0].Stage)
		assert.Equal(t, int64(3), stats[0].Total)
		assert.Equal(t, int64(3), stats[0].CreatedToday)
		assert.Equal(t, int64(1), stats[2].Total)
	})

	t.Run("Success_DocumentTypes", func(t *testing.T) {
		summaries, err := f.uc.DocumentTypes(ctx)

		require.NoError(t, err)
		var po *transactionDomain.DocumentTypeSummary
		for _, s := range summaries {
			if s.Code == "850" {
				po = s
			}
		}
		require.NotNil(t, po)
		assert.Equal(t, int64(4), po.Count)
		assert.Equal(t, "Purchase Order", po.Name)
	})
}

func TestLifecycleUseCase_Maintenance(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_PurgeDiscarded", func(t *testing.T) {
		f := newFixture(t)
		old := f.createIntake(t)
		require.NoError(t, f.uc.Delete(ctx, old.ID, false))
		fresh := f.createIntake(t)

		f.uc.now = func() time.Time { return time.Now().Add(40 * 24 * time.Hour) }
		require.NoError(t, f.uc.Delete(ctx, fresh.ID, false))

		count, err := f.uc.PurgeDiscarded(ctx, 30, true)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
		_, err = f.uc.Get(ctx, old.ID)
		require.NoError(t, err)

		count, err = f.uc.PurgeDiscarded(ctx, 30, false)
		require.NoError(t, err)
		assert.Equal(t, 1, count)

		_, err = f.uc.Get(ctx, old.ID)
		assert.ErrorIs(t, err, transactionDomain.ErrTransactionNotFound)
		_, err = f.uc.Get(ctx, fresh.ID)
		assert.NoError(t, err)
	})

	t.Run("Success_RecoverStuck", func(t *testing.T) {
		f := newFixture(t)
		tx, err := f.uc.Create(ctx, outboxInput())
		require.NoError(t, err)

		stuck := tx.Clone()
		stuck.Status = transactionDomain.StatusProcessing
		require.NoError(t, f.transactions.Save(ctx, stuck))

		count, err := f.uc.RecoverStuck(ctx, time.Hour)
		require.NoError(t, err)
		assert.Zero(t, count)

		f.uc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		count, err = f.uc.RecoverStuck(ctx, time.Hour)
		require.NoError(t, err)
		assert.Equal(t, 1, count)

		stored, err := f.uc.Get(ctx, tx.ID)
		require.NoError(t, err)
		assert.Equal(t, transactionDomain.StatusFailed, stored.Status)

		entries, err := f.uc.History(ctx, tx.ID)
		require.NoError(t, err)
		assert.Equal(t, "recovered_stuck", entries[len(entries)-1].Details["reason"])
	})

	t.Run("Success_CleanHistory", func(t *testing.T) {
		f := newFixture(t)
		f.createIntake(t)

		count, err := f.uc.CleanHistory(ctx, 0, true)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)

		_, err = f.uc.CleanHistory(ctx, -1, true)
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})

	t.Run("Error_VerifyHistoryWithoutSigner", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.uc.VerifyHistory(ctx, nil, nil)

		assert.ErrorIs(t, err, transactionDomain.ErrSigningDisabled)
	})

	t.Run("Success_VerifyHistory", func(t *testing.T) {
		f := newFixture(t)
		f.createIntake(t)
		f.uc.signer = fakeSigner{}
		tx := f.createIntake(t)

		entries, err := f.history.ListByTransaction(ctx, tx.ID)
		require.NoError(t, err)
		require.True(t, entries[0].IsSigned())

		result, err := f.uc.VerifyHistory(ctx, nil, nil)

		require.NoError(t, err)
		assert.Equal(t, 2, result.Checked)
		assert.Equal(t, 1, result.Unsigned)
		assert.Empty(t, result.Invalid)
	})
}
