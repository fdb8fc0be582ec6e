package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/goleak"

	"github.com/allisson/edibox/internal/transaction/usecase"
	usecaseMocks "github.com/allisson/edibox/internal/transaction/usecase/mocks"
)

func TestMaintenanceWorker_RunOnce(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_RecoverOnly", func(t *testing.T) {
		lifecycle := &usecaseMocks.MockLifecycleUseCase{}
		lifecycle.On("RecoverStuck", ctx, 15*time.Minute).Return(2, nil).Once()

		worker := usecase.NewMaintenanceWorker(usecase.WorkerConfig{
			Interval:   time.Minute,
			StuckAfter: 15 * time.Minute,
		}, lifecycle, nil)
		worker.RunOnce(ctx)

		lifecycle.AssertExpectations(t)
		lifecycle.AssertNotCalled(t, "PurgeDiscarded", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Success_RecoverAndPurge", func(t *testing.T) {
		lifecycle := &usecaseMocks.MockLifecycleUseCase{}
		lifecycle.On("RecoverStuck", ctx, time.Hour).Return(0, assert.AnError).Once()
		lifecycle.On("PurgeDiscarded", ctx, 30, false).Return(3, nil).Once()

		worker := usecase.NewMaintenanceWorker(usecase.WorkerConfig{
			Interval:       time.Minute,
			StuckAfter:     time.Hour,
			PurgeAfterDays: 30,
		}, lifecycle, nil)
		worker.RunOnce(ctx)

		lifecycle.AssertExpectations(t)
	})
}

func TestMaintenanceWorker_Start(t *testing.T) {
	defer goleak.VerifyNone(t)

	lifecycle := &usecaseMocks.MockLifecycleUseCase{}
	lifecycle.On("RecoverStuck", mock.Anything, time.Minute).Return(0, nil)

	worker := usecase.NewMaintenanceWorker(usecase.WorkerConfig{
		Interval:   5 * time.Millisecond,
		StuckAfter: time.Minute,
	}, lifecycle, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	err := worker.Start(ctx)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	lifecycle.AssertCalled(t, "RecoverStuck", mock.Anything, time.Minute)
}
