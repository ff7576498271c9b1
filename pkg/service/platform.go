package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/AccelByte/accelbyte-go-sdk/platform-sdk/pkg/platformclient/fulfillment"
	"github.com/AccelByte/accelbyte-go-sdk/platform-sdk/pkg/platformclientmodels"
	"github.com/AccelByte/accelbyte-go-sdk/services-api/pkg/service/platform"
	"github.com/AccelByte/accelbyte-go-sdk/services-api/pkg/service/social"
	"github.com/AccelByte/accelbyte-go-sdk/social-sdk/pkg/socialclient/user_statistic"
	"github.com/AccelByte/accelbyte-go-sdk/social-sdk/pkg/socialclientmodels"
	"github.com/sirupsen/logrus"
)

// ErrInvalidQuantity is returned when an entitlement grant asks for less
// than one item.
var ErrInvalidQuantity = errors.New("quantity must be positive")

// EntitlementService grants reward items through AccelByte fulfillment.
type EntitlementService struct {
	fulfillment *platform.FulfillmentService
	cfg         EntitlementServiceConfig
}

// EntitlementServiceConfig configures an EntitlementService.
type EntitlementServiceConfig struct {
	Namespace string
}

func NewEntitlementService(fulfillment *platform.FulfillmentService, cfg EntitlementServiceConfig) *EntitlementService {
	return &EntitlementService{
		fulfillment: fulfillment,
		cfg:         cfg,
	}
}

// GrantEntitlement fulfills quantity units of itemID for userID with the
// REWARD source. The request carries ctx.
func (s *EntitlementService) GrantEntitlement(ctx context.Context, userID, itemID string, quantity int) error {
	if quantity <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidQuantity, quantity)
	}
	qty := int32(quantity)

	resp, err := s.fulfillment.FulfillItemShort(&fulfillment.FulfillItemParams{
		Context:   ctx,
		Namespace: s.cfg.Namespace,
		UserID:    userID,
		Body: &platformclientmodels.FulfillmentRequest{
			ItemID:   itemID,
			Quantity: &qty,
			Source:   platformclientmodels.FulfillmentRequestSourceREWARD,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to fulfill item %s for user %s: %w", itemID, userID, err)
	}
	if resp == nil {
		return fmt.Errorf("failed to fulfill item %s for user %s: empty response", itemID, userID)
	}

	logrus.Infof("granted %d x item %s to user %s in namespace %s", quantity, itemID, userID, s.cfg.Namespace)
	return nil
}

// StatisticService updates AccelByte user statistics.
type StatisticService struct {
	stats *social.UserStatisticService
	cfg   StatisticServiceConfig
}

// StatisticServiceConfig configures a StatisticService.
type StatisticServiceConfig struct {
	Namespace string
}

func NewStatisticService(stats *social.UserStatisticService, cfg StatisticServiceConfig) *StatisticService {
	return &StatisticService{
		stats: stats,
		cfg:   cfg,
	}
}

// IncrementStat adds inc to the user's statCode.
func (s *StatisticService) IncrementStat(ctx context.Context, userID, statCode string, inc float64) error {
	_, err := s.stats.IncUserStatItemValueShort(&user_statistic.IncUserStatItemValueParams{
		Context:   ctx,
		Namespace: s.cfg.Namespace,
		UserID:    userID,
		StatCode:  statCode,
		Body:      &socialclientmodels.StatItemInc{Inc: inc},
	})
	if err != nil {
		return fmt.Errorf("failed to increment user %s statistic %s: %w", userID, statCode, err)
	}

	logrus.Debugf("incremented statistic %s of user %s by %v", statCode, userID, inc)
	return nil
}
