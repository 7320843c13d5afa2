package broadcast

import (
	"docflow/internal/domain"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// MessageType is the only envelope type on the channel
const MessageType = "UPDATE"

// deleteMarker tags a payload as a deletion notice
const deleteMarker = "DELETE"

// Kind tells receivers which reconciliation rule applies to a payload
type Kind string

const (
	KindCreate Kind = "create"
	KindUpdate Kind = "update"
	KindDelete Kind = "delete"
	// KindResync asks receivers to refetch the whole organization
	KindResync Kind = "resync"
)

// Message is the envelope published on the document-updates channel
type Message struct {
	Type string  `json:"type" validate:"required,eq=UPDATE"`
	Data Payload `json:"data"`
}

// Payload carries one of four shapes, told apart by which fields are set:
//
//	{organization, newDocument, timestamp}          creation
//	{organization, documentId, document, timestamp} update
//	{organization, documentId, type: "DELETE", ...} deletion
//	{organization, timestamp}                       re-sync
//
// Origin identifies the publishing tab so it can skip its own echo.
type Payload struct {
	Organization string               `json:"organization" validate:"required"`
	DocumentID   string               `json:"documentId,omitempty"`
	NewDocument  *domain.DocumentView `json:"newDocument,omitempty"`
	Document     *domain.DocumentView `json:"document,omitempty"`
	Type         string               `json:"type,omitempty" validate:"omitempty,eq=DELETE"`
	Timestamp    int64                `json:"timestamp"`
	Origin       string               `json:"origin,omitempty"`
}

// Kind classifies the payload. Anything that is not a well formed
// create, update or delete falls back to a re-sync.
func (p Payload) Kind() Kind {
	switch {
	case p.NewDocument != nil:
		return KindCreate
	case p.DocumentID != "" && p.Type == deleteMarker:
		return KindDelete
	case p.DocumentID != "" && p.Document != nil:
		return KindUpdate
	default:
		return KindResync
	}
}

var validate = validator.New()

// Validate checks the envelope before it is published or applied
func (m Message) Validate() error {
	if err := validate.Struct(m); err != nil {
		return fmt.Errorf("invalid broadcast message: %w", err)
	}
	return nil
}

func newMessage(p Payload) Message {
	p.Timestamp = time.Now().UnixMilli()
	return Message{Type: MessageType, Data: p}
}

func NewCreate(organization string, doc domain.DocumentView, origin string) Message {
	return newMessage(Payload{Organization: organization, NewDocument: &doc, Origin: origin})
}

func NewUpdate(organization string, doc domain.DocumentView, origin string) Message {
	return newMessage(Payload{Organization: organization, DocumentID: doc.ID, Document: &doc, Origin: origin})
}

func NewDelete(organization, documentID, origin string) Message {
	return newMessage(Payload{Organization: organization, DocumentID: documentID, Type: deleteMarker, Origin: origin})
}

func NewResync(organization, origin string) Message {
	return newMessage(Payload{Organization: organization, Origin: origin})
}
