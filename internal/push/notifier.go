package push

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ho8ae/growpromise-sub001/internal/event"
	"github.com/ho8ae/growpromise-sub001/internal/model"
	"github.com/ho8ae/growpromise-sub001/internal/store"
)

// Notifier turns domain events into push notifications. Submitted
// assignments go to every guardian; everything else goes to the dependent
// it concerns. Expired subscriptions are pruned on the first 410.
type Notifier struct {
	service *Service
	subs    *store.PushStore
	members *store.MemberStore
	bus     *event.Bus
	logger  *slog.Logger
}

func NewNotifier(svc *Service, subs *store.PushStore, members *store.MemberStore, bus *event.Bus, logger *slog.Logger) *Notifier {
	return &Notifier{
		service: svc,
		subs:    subs,
		members: members,
		bus:     bus,
		logger:  logger,
	}
}

// Run consumes the event bus until ctx is cancelled.
func (n *Notifier) Run(ctx context.Context) {
	ch := n.bus.Subscribe(64)
	for {
		select {
		case ev := <-ch:
			n.handle(ev)
		case <-ctx.Done():
			return
		}
	}
}

func (n *Notifier) handle(ev event.Event) {
	switch p := ev.Payload.(type) {
	case event.AssignmentSubmitted:
		n.notifyGuardians(Payload{
			Title: "Verification submitted",
			Body:  "A promise is waiting for your review",
			URL:   "/assignments",
			Tag:   fmt.Sprintf("assignment-%d", p.AssignmentID),
		})
	case event.AssignmentApproved:
		n.notifyMember(p.DependentID, Payload{
			Title: "Promise approved",
			Body:  "You earned a sticker. Great job!",
			URL:   "/stickers",
			Tag:   fmt.Sprintf("assignment-%d", p.AssignmentID),
		})
	case event.AssignmentRejected:
		n.notifyMember(p.DependentID, Payload{
			Title: "Promise needs another try",
			Body:  p.Reason,
			URL:   "/assignments",
			Tag:   fmt.Sprintf("assignment-%d", p.AssignmentID),
		})
	case event.RewardRedeemed:
		n.notifyGuardians(Payload{
			Title: "Reward redeemed",
			Body:  fmt.Sprintf("%d stickers were exchanged for a reward", p.StickerCount),
			URL:   "/rewards",
			Tag:   fmt.Sprintf("redemption-%d", p.RedemptionID),
		})
	case event.PlantAdvanced:
		body := fmt.Sprintf("Your plant reached stage %d", p.Stage)
		if p.Completed {
			body = "Your plant is fully grown!"
		}
		n.notifyMember(p.DependentID, Payload{
			Title: "Plant grew",
			Body:  body,
			URL:   "/plant",
			Tag:   fmt.Sprintf("plant-%d", p.PlantID),
		})
	}
}

func (n *Notifier) notifyMember(memberID int64, payload Payload) {
	subs, err := n.subs.ListByMember(memberID)
	if err != nil {
		n.logger.Error("list push subscriptions", "member_id", memberID, "error", err)
		return
	}
	n.deliver(subs, payload)
}

func (n *Notifier) notifyGuardians(payload Payload) {
	guardians, err := n.members.ListByRole(model.RoleGuardian)
	if err != nil {
		n.logger.Error("list guardians", "error", err)
		return
	}
	for _, g := range guardians {
		n.notifyMember(g.ID, payload)
	}
}

func (n *Notifier) deliver(subs []model.PushSubscription, payload Payload) {
	for i := range subs {
		sub := &subs[i]
		if err := n.service.Send(sub, payload); err != nil {
			if errors.Is(err, ErrExpired) {
				if derr := n.subs.DeleteByEndpoint(sub.Endpoint); derr != nil {
					n.logger.Error("prune expired subscription", "endpoint", sub.Endpoint, "error", derr)
				}
				continue
			}
			n.logger.Error("send push", "endpoint", sub.Endpoint, "error", err)
		}
	}
}
