package notification

import (
	"context"
	"io"
	"log"
	"slices"
	"strings"
	"time"

	"github.com/nicholas-fedor/shoutrrr"
	"github.com/nicholas-fedor/shoutrrr/pkg/router"
	stypes "github.com/nicholas-fedor/shoutrrr/pkg/types"

	"github.com/echolens-ai/echolens/internal/privacy"
)

// ShoutrrrProvider sends via nicholas-fedor/shoutrrr. One sender serves all URLs.
type ShoutrrrProvider struct {
	name   string
	urls   []string
	sender *router.ServiceRouter
}

// NewShoutrrrProvider validates the service URLs and builds the sender.
func NewShoutrrrProvider(name string, urls []string, timeout time.Duration) (*ShoutrrrProvider, error) {
	sp := &ShoutrrrProvider{
		name: strings.TrimSpace(name),
		urls: slices.Clone(urls),
	}
	if sp.name == "" {
		sp.name = "shoutrrr"
	}
	if len(sp.urls) == 0 {
		return nil, ErrNoProviders
	}

	sender, err := shoutrrr.CreateSender(sp.urls...)
	if err != nil {
		// service URLs carry tokens
		return nil, deliveryError(privacy.WrapError(err), sp.name)
	}
	if timeout > 0 {
		sender.Timeout = timeout
	}
	sender.SetLogger(log.New(io.Discard, "", 0))
	sp.sender = sender
	return sp, nil
}

// Name implements Provider.
func (s *ShoutrrrProvider) Name() string { return s.name }

// Send implements Provider. The router applies its own timeout.
func (s *ShoutrrrProvider) Send(_ context.Context, n *Notification) error {
	params := stypes.Params{}
	if n.Title != "" {
		params.SetTitle(n.Title)
	}
	for _, err := range s.sender.Send(n.Message, &params) {
		if err != nil {
			return privacy.WrapError(err)
		}
	}
	return nil
}
