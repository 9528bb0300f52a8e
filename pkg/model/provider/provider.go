package provider

import (
	"context"

	"github.com/LucasSabena/codemobile-sub001/pkg/chat"
	"github.com/LucasSabena/codemobile-sub001/pkg/model/provider/base"
	"github.com/LucasSabena/codemobile-sub001/pkg/model/provider/options"
	"github.com/LucasSabena/codemobile-sub001/pkg/tools"
)

type Model = base.Model

// Provider is a streaming chat backend.
type Provider interface {
	// ID returns the registry id of the provider.
	ID() string
	// SendMessage streams the model's reply. Failures are delivered as
	// chat.Error events; a cancelled request ends the stream without a
	// terminal event.
	SendMessage(ctx context.Context, messages []chat.Message, model string, tools []tools.Tool, gen options.Generation) <-chan chat.StreamEvent
	// ListModels returns the static model catalog.
	ListModels() []Model
	// ValidateCredentials performs a cheap authenticated request.
	ValidateCredentials(ctx context.Context) bool
	// CancelRequest aborts the request in flight.
	CancelRequest()
}
