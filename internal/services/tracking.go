package services

import (
	"context"
	"log"

	"financial-movement/internal/models"
)

func trackStep(ctx context.Context, tracker StateTracker, transactionID, step string, status models.StatusResult) {
	if transactionID == "" {
		return
	}
	ctx = context.WithoutCancel(ctx)
	if err := tracker.SetStepStatus(ctx, transactionID, step, status); err != nil {
		log.Printf("Warning: failed to track %s step of transaction %s: %v", step, transactionID, err)
	}
}
