package service

import (
	"context"
	"errors"

	"github.com/reelhub/discovery/internal/models"
)

// InteractionLogger records viewer interactions for analytics. Failures never
// affect the counter update that produced the interaction.
type InteractionLogger interface {
	LogInteraction(ctx context.Context, interaction *models.Interaction) error
}

// MultiLogger fans one interaction out to every logger and joins their errors.
type MultiLogger []InteractionLogger

func (m MultiLogger) LogInteraction(ctx context.Context, interaction *models.Interaction) error {
	var errs []error
	for _, l := range m {
		if l == nil {
			continue
		}
		if err := l.LogInteraction(ctx, interaction); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type clientKey struct{}

type clientInfo struct {
	ip        string
	userAgent string
}

// WithClient attaches the caller's address and user agent to ctx so that
// counter updates and searches can attribute the records they log.
func WithClient(ctx context.Context, ip, userAgent string) context.Context {
	return context.WithValue(ctx, clientKey{}, clientInfo{ip: ip, userAgent: userAgent})
}

func clientFrom(ctx context.Context) clientInfo {
	info, _ := ctx.Value(clientKey{}).(clientInfo)
	return info
}
