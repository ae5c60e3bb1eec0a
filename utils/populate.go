package utils

import (
	"context"
	"fmt"
	"time"

	"maternar/models"
	"maternar/store"
)

// DemoPassword is the password of every seeded demo account.
const DemoPassword = "maternar123"

// PopulateDemoData seeds a development store with a few users, courses,
// policies, a general channel and quick links. It does nothing when users
// already exist.
func PopulateDemoData(ctx context.Context, s store.Store, bcryptCost int, xpPerLevel int) error {
	count, err := s.CountUsers(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := HashPassword(DemoPassword, bcryptCost)
	if err != nil {
		return err
	}

	users := []models.User{
		{Email: "admin@maternar.com", Username: "admin", FirstName: "Ana", LastName: "Admin", Department: "TI", Position: "Administradora", Role: models.RoleAdmin, TotalXP: 2400, WeeklyXP: 300},
		{Email: "maria.silva@maternar.com", Username: "mariasilva", FirstName: "Maria", LastName: "Silva", Department: "RH", Position: "Analista", Role: models.RoleUser, TotalXP: 1850, WeeklyXP: 420},
		{Email: "joao.souza@maternar.com", Username: "joaosouza", FirstName: "João", LastName: "Souza", Department: "Financeiro", Position: "Coordenador", Role: models.RoleUser, TotalXP: 950, WeeklyXP: 120},
	}
	for i := range users {
		u := &users[i]
		u.PasswordHash = hash
		u.IsActive = true
		u.Level = u.TotalXP/xpPerLevel + 1
		if err := s.CreateUser(ctx, u); err != nil {
			return fmt.Errorf("seed user %s: %w", u.Email, err)
		}
	}

	courses := []models.Course{
		{Title: "Integração Maternar", Description: "Conheça a cultura e os valores da empresa.", Category: "Onboarding", Duration: 45, XPReward: 100, IsActive: true},
		{Title: "Segurança da Informação", Description: "Boas práticas de senhas, phishing e dados.", Category: "Compliance", Duration: 60, XPReward: 150, IsActive: true},
		{Title: "Atendimento Humanizado", Description: "Comunicação empática com pacientes.", Category: "Atendimento", Duration: 90, XPReward: 200, IsActive: true},
	}
	for i := range courses {
		if err := s.CreateCourse(ctx, &courses[i]); err != nil {
			return err
		}
	}

	policies := []models.Policy{
		{Title: "Código de Conduta", Content: "Regras de conduta profissional.", Version: "2.1", IsMandatory: true},
		{Title: "Política de Privacidade (LGPD)", Content: "Tratamento de dados pessoais.", Version: "1.3", IsMandatory: true},
	}
	for i := range policies {
		if err := s.CreatePolicy(ctx, &policies[i]); err != nil {
			return err
		}
	}

	general := &models.Channel{Name: "geral", Description: "Canal geral da empresa", Type: models.ChannelPublic, CreatedBy: users[0].ID}
	if err := s.CreateChannel(ctx, general); err != nil {
		return err
	}
	for _, u := range users {
		if err := s.AddChannelMember(ctx, &models.ChannelMember{ChannelID: general.ID, UserID: u.ID}); err != nil {
			return err
		}
	}

	links := []models.Link{
		{Title: "Portal RH", URL: "https://rh.maternar.com", Category: "RH", Icon: "users", CreatedBy: users[0].ID},
		{Title: "Suporte TI", URL: "https://suporte.maternar.com", Category: "TI", Icon: "help-circle", CreatedBy: users[0].ID},
	}
	for i := range links {
		if err := s.CreateLink(ctx, &links[i]); err != nil {
			return err
		}
	}

	start := time.Now().Add(48 * time.Hour).Truncate(time.Hour)
	return s.CreateEvent(ctx, &models.Event{
		Title:     "Reunião geral",
		Location:  "Auditório",
		StartDate: start,
		EndDate:   start.Add(time.Hour),
		CreatedBy: users[0].ID,
	})
}
