package services

import (
	"context"
	"errors"
	"net/http"

	"github.com/babylonlabs-io/tip-ledger/internal/scores"
	"github.com/babylonlabs-io/tip-ledger/internal/types"
)

func (s *Service) GetScores(ctx context.Context, fid, address string) (*scores.Result, *types.Error) {
	if s.scores == nil {
		return nil, types.NewErrorWithMsg(
			http.StatusServiceUnavailable, types.InternalServiceError, "score lookups are not configured",
		)
	}

	result, err := s.scores.GetScores(ctx, fid, address)
	if err != nil {
		if errors.Is(err, scores.ErrMissingIdentity) {
			return nil, types.NewValidationFailedError(err)
		}
		return nil, types.NewInternalServiceError(err)
	}
	return result, nil
}
