package services

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"maternar/models"
	"maternar/store"
)

// PolicyView is a policy with the viewer's acknowledgment time.
type PolicyView struct {
	models.Policy
	AcknowledgedAt *time.Time
}

type PolicyInput struct {
	Title       string `json:"title" validate:"required,notblank,max=200"`
	Content     string `json:"content" validate:"required,notblank"`
	Version     string `json:"version" validate:"max=20"`
	IsMandatory bool   `json:"isMandatory"`
}

type LinkInput struct {
	Title    string `json:"title" validate:"required,notblank,max=200"`
	URL      string `json:"url" validate:"required,url,max=500"`
	Category string `json:"category" validate:"max=100"`
	Icon     string `json:"icon" validate:"max=100"`
}

type PolicyService struct {
	store        store.Store
	gamification *GamificationService
	authz        *Authorizer
	xpAck        int
	logger       *slog.Logger
	now          func() time.Time
}

func NewPolicyService(s store.Store, gs *GamificationService, authz *Authorizer, xpAck int, logger *slog.Logger) *PolicyService {
	return &PolicyService{store: s, gamification: gs, authz: authz, xpAck: xpAck, logger: logger, now: time.Now}
}

func (ps *PolicyService) List(ctx context.Context, userID uint) ([]PolicyView, error) {
	policies, err := ps.store.ListPolicies(ctx)
	if err != nil {
		return nil, err
	}
	acks, err := ps.store.ListAcknowledgments(ctx, userID)
	if err != nil {
		return nil, err
	}
	at := make(map[uint]time.Time, len(acks))
	for _, a := range acks {
		at[a.PolicyID] = a.AcknowledgedAt
	}

	out := make([]PolicyView, 0, len(policies))
	for _, p := range policies {
		v := PolicyView{Policy: p}
		if t, ok := at[p.ID]; ok {
			v.AcknowledgedAt = &t
		}
		out = append(out, v)
	}
	return out, nil
}

// Acknowledge records that the user read the policy. The first
// acknowledgment grants the policy XP bonus in the same transaction; repeats
// are no-ops.
func (ps *PolicyService) Acknowledge(ctx context.Context, userID, policyID uint) (*PolicyView, error) {
	p, err := ps.store.GetPolicy(ctx, policyID)
	if err != nil {
		return nil, notFound(err, ErrNotFound)
	}

	now := ps.now()
	created := false
	_, err = ps.gamification.GrantXPWith(ctx, userID, "Acknowledged policy: "+p.Title, func(tx store.Store) (int, error) {
		var err error
		created, err = tx.AcknowledgePolicy(ctx, &models.PolicyAcknowledgment{
			PolicyID:       policyID,
			UserID:         userID,
			AcknowledgedAt: now,
		})
		if err != nil || !created {
			return 0, err
		}
		return ps.xpAck, nil
	})
	if err != nil {
		return nil, err
	}
	if !created {
		return ps.view(ctx, userID, p)
	}

	ps.logger.Info("policy acknowledged", "user_id", userID, "policy_id", policyID)
	return &PolicyView{Policy: *p, AcknowledgedAt: &now}, nil
}

func (ps *PolicyService) view(ctx context.Context, userID uint, p *models.Policy) (*PolicyView, error) {
	acks, err := ps.store.ListAcknowledgments(ctx, userID)
	if err != nil {
		return nil, err
	}
	v := &PolicyView{Policy: *p}
	for _, a := range acks {
		if a.PolicyID == p.ID {
			t := a.AcknowledgedAt
			v.AcknowledgedAt = &t
		}
	}
	return v, nil
}

func (ps *PolicyService) Create(ctx context.Context, actor *models.User, in PolicyInput) (*models.Policy, error) {
	if err := ps.authz.Require(actor, "policy", "write"); err != nil {
		return nil, err
	}
	in.Title = strings.TrimSpace(in.Title)
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	if in.Version == "" {
		in.Version = "1.0"
	}
	p := &models.Policy{Title: in.Title, Content: in.Content, Version: in.Version, IsMandatory: in.IsMandatory}
	if err := ps.store.CreatePolicy(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

type LinkService struct {
	store store.Store
	authz *Authorizer
}

func NewLinkService(s store.Store, authz *Authorizer) *LinkService {
	return &LinkService{store: s, authz: authz}
}

func (ls *LinkService) List(ctx context.Context) ([]models.Link, error) {
	return ls.store.ListLinks(ctx)
}

func (ls *LinkService) Create(ctx context.Context, actor *models.User, in LinkInput) (*models.Link, error) {
	if err := ls.authz.Require(actor, "link", "write"); err != nil {
		return nil, err
	}
	in.Title = strings.TrimSpace(in.Title)
	in.URL = strings.TrimSpace(in.URL)
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	l := &models.Link{Title: in.Title, URL: in.URL, Category: in.Category, Icon: in.Icon, CreatedBy: actor.ID}
	if err := ls.store.CreateLink(ctx, l); err != nil {
		return nil, err
	}
	return l, nil
}

func (ls *LinkService) Delete(ctx context.Context, actor *models.User, id uint) error {
	if err := ls.authz.Require(actor, "link", "write"); err != nil {
		return err
	}
	return notFound(ls.store.DeleteLink(ctx, id), ErrNotFound)
}
