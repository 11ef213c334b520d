package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"

	"github.com/dmitrymomot/devicetrust/pkg/security"
)

// CollaboratorSink forwards events to the security collaborator.
type CollaboratorSink struct {
	client security.Client
}

func NewCollaboratorSink(client security.Client) *CollaboratorSink {
	return &CollaboratorSink{client: client}
}

func (s *CollaboratorSink) Submit(ctx context.Context, event security.Event) error {
	return s.client.SubmitEvent(ctx, event)
}

// ArchiveSink indexes events into OpenSearch for local retention and
// ad-hoc investigation, independent of the collaborator's availability.
type ArchiveSink struct {
	client *opensearch.Client
	index  string
}

func NewArchiveSink(client *opensearch.Client, index string) *ArchiveSink {
	if index == "" {
		index = "security-events"
	}
	return &ArchiveSink{client: client, index: index}
}

type archiveDocument struct {
	security.Event
	Timestamp time.Time `json:"@timestamp"`
}

func (s *ArchiveSink) Submit(ctx context.Context, event security.Event) error {
	doc, err := json.Marshal(archiveDocument{Event: event, Timestamp: time.Now().UTC()})
	if err != nil {
		return err
	}

	req := opensearchapi.IndexRequest{
		Index:      s.index,
		DocumentID: uuid.NewString(),
		Body:       bytes.NewReader(doc),
	}

	res, err := req.Do(ctx, s.client)
	if err != nil {
		return err
	}
	defer res.Body.Close() //nolint:errcheck

	if res.IsError() {
		return fmt.Errorf("telemetry: archive indexing failed: %s", res.Status())
	}
	return nil
}
