package service

import (
	"context"
	"log"
	"time"

	"affily/internal/models"
	"affily/internal/repository"
	"affily/pkg/xapi"
)

// EngagementService resolves referral ids to shared tweets, fetches their
// public metrics in batches, and persists snapshots.
type EngagementService struct {
	referralRepo *repository.ReferralRepository
	xClient      *xapi.Client
}

func NewEngagementService(referralRepo *repository.ReferralRepository, xClient *xapi.Client) *EngagementService {
	return &EngagementService{referralRepo: referralRepo, xClient: xClient}
}

// UpdateFromReferrals fetches engagement for every referral id that resolves
// to a referral with a parseable tweet URL. Invalid ids and unparseable URLs
// are skipped, not fatal; lookups run in batches of at most 100 ids and a
// failed batch skips to the next.
func (s *EngagementService) UpdateFromReferrals(ctx context.Context, referralIDs []string) ([]models.EngagementSnapshot, error) {
	type tweetRef struct {
		referralID string
		tweetURL   string
	}
	byTweetID := make(map[string]tweetRef)
	var tweetIDs []string
	for _, id := range referralIDs {
		referral, err := s.referralRepo.GetByID(id)
		if err != nil {
			log.Printf("[engagement] skipping referral %s: %v", id, err)
			continue
		}
		tweetID := xapi.TweetIDFromURL(referral.TweetURL)
		if tweetID == "" {
			log.Printf("[engagement] invalid tweet URL for referral %s", id)
			continue
		}
		byTweetID[tweetID] = tweetRef{referralID: referral.ID, tweetURL: referral.TweetURL}
		tweetIDs = append(tweetIDs, tweetID)
	}

	now := time.Now()
	var snapshots []models.EngagementSnapshot
	for start := 0; start < len(tweetIDs); start += xapi.MaxBatchSize {
		end := start + xapi.MaxBatchSize
		if end > len(tweetIDs) {
			end = len(tweetIDs)
		}
		batch, err := s.xClient.LookupEngagement(ctx, tweetIDs[start:end])
		if err != nil {
			log.Printf("[engagement] batch lookup failed: %v", err)
			continue
		}
		for _, engagement := range batch {
			ref, ok := byTweetID[engagement.ID]
			if !ok {
				continue
			}
			snapshots = append(snapshots, models.EngagementSnapshot{
				ReferralID:      ref.referralID,
				TweetURL:        ref.tweetURL,
				RetweetCount:    engagement.PublicMetrics.RetweetCount,
				ReplyCount:      engagement.PublicMetrics.ReplyCount,
				LikeCount:       engagement.PublicMetrics.LikeCount,
				QuoteCount:      engagement.PublicMetrics.QuoteCount,
				BookmarkCount:   engagement.PublicMetrics.BookmarkCount,
				ImpressionCount: engagement.PublicMetrics.ImpressionCount,
				FetchedAt:       now,
			})
		}
	}

	if err := s.referralRepo.SaveEngagementSnapshots(snapshots); err != nil {
		return nil, err
	}
	return snapshots, nil
}
