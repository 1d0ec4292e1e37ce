package corpus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"lexcorpus/internal/config"
	"lexcorpus/internal/domain"
	"lexcorpus/internal/domain/models"
	corpusModels "lexcorpus/internal/domain/models/corpus"
	corpusRepo "lexcorpus/internal/domain/repositories/corpus"
	"lexcorpus/internal/domain/services"
	corpusSvc "lexcorpus/internal/domain/services/corpus"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"golang.org/x/sync/errgroup"
)

// DuplicateCandidate is one project member prepared for comparison.
// Shingles is nil when derived text is unavailable.
type DuplicateCandidate struct {
	Document corpusModels.DuplicateDocument
	Hash     string
	Shingles map[string]struct{}
}

// FindDuplicates compares every pair once. Exact hash matches are reported
// regardless of threshold; other pairs when their similarity reaches it.
// Pairs come back ordered by similarity, highest first.
func FindDuplicates(candidates []DuplicateCandidate, threshold float64) []corpusModels.DuplicatePair {
	pairs := []corpusModels.DuplicatePair{}
	for i := 0; i < len(candidates); i++ {
		for j := i + 1; j < len(candidates); j++ {
			a, b := candidates[i], candidates[j]

			if a.Hash != "" && a.Hash == b.Hash {
				pairs = append(pairs, corpusModels.DuplicatePair{
					DocumentA:  a.Document,
					DocumentB:  b.Document,
					MatchType:  corpusModels.MatchExactHash,
					Similarity: 1.0,
				})
				continue
			}

			var score float64
			if a.Shingles != nil && b.Shingles != nil {
				score = Jaccard(a.Shingles, b.Shingles)
			} else {
				score = NameSizeSimilarity(a.Document.Name, a.Document.SizeBytes, b.Document.Name, b.Document.SizeBytes)
			}
			if score >= threshold {
				pairs = append(pairs, corpusModels.DuplicatePair{
					DocumentA:  a.Document,
					DocumentB:  b.Document,
					MatchType:  corpusModels.MatchSimilar,
					Similarity: score,
				})
			}
		}
	}

	sort.SliceStable(pairs, func(i, j int) bool { return pairs[i].Similarity > pairs[j].Similarity })
	return pairs
}

// duplicateService implements corpusSvc.DuplicateService
type duplicateService struct {
	membershipRepo corpusRepo.MembershipRepository
	docRepo        corpusRepo.DocumentRepository
	store          services.ContentStore
	authorizer     services.ResourceAuthorizer
	logger         *slog.Logger
}

// NewDuplicateService creates a new duplicate detector
func NewDuplicateService(
	membershipRepo corpusRepo.MembershipRepository,
	docRepo corpusRepo.DocumentRepository,
	store services.ContentStore,
	authorizer services.ResourceAuthorizer,
	logger *slog.Logger,
) corpusSvc.DuplicateService {
	return &duplicateService{
		membershipRepo: membershipRepo,
		docRepo:        docRepo,
		store:          store,
		authorizer:     authorizer,
		logger:         logger,
	}
}

// CheckDuplicates loads every member's derived text and compares all pairs
func (s *duplicateService) CheckDuplicates(ctx context.Context, p models.Principal, projectID string, threshold float64) ([]corpusModels.DuplicatePair, error) {
	if threshold == 0 {
		threshold = config.DefaultDuplicateThreshold
	}
	if err := validation.Validate(threshold,
		validation.Min(0.000001).Error("threshold must be greater than 0"),
		validation.Max(1.0).Error("threshold cannot exceed 1"),
	); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	if err := s.authorizer.CanReadProject(ctx, p, projectID); err != nil {
		return nil, err
	}

	members, err := s.membershipRepo.ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(members))
	for i, m := range members {
		ids[i] = m.DocumentID
	}
	docs, err := s.docRepo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*corpusModels.Document, len(docs))
	for i := range docs {
		byID[docs[i].ID] = &docs[i]
	}

	candidates := make([]DuplicateCandidate, len(members))
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(10)
	for i, m := range members {
		candidates[i] = DuplicateCandidate{
			Document: corpusModels.DuplicateDocument{ID: m.DocumentID, Name: m.DocumentName, SizeBytes: m.SizeBytes},
			Hash:     m.ContentHash,
		}
		doc, ok := byID[m.DocumentID]
		if !ok || doc.Status != corpusModels.StatusIngested {
			continue
		}
		g.Go(func() error {
			text, err := s.store.Get(gctx, doc.TextKey())
			if err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					return nil
				}
				return err
			}
			shingles := Shingles(CleanText(string(text)), config.ShingleSize)
			mu.Lock()
			candidates[i].Shingles = shingles
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load derived text: %w", err)
	}

	pairs := FindDuplicates(candidates, threshold)
	s.logger.Debug("duplicate check completed",
		"project_id", projectID,
		"documents", len(candidates),
		"pairs", len(pairs),
	)
	return pairs, nil
}
