package syncd

import (
	"context"
	"net/http"
	"time"

	"github.com/guonaihong/gout"
	jsoniter "github.com/json-iterator/go"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"

	"github.com/mgcaisse/caisse/internal/domain"
)

// Deliverer replays one queue entry to the remote endpoint. The payload must
// be re-deliverable in the shape it was originally submitted with.
type Deliverer interface {
	Deliver(ctx context.Context, entry domain.SyncQueueEntry) error
}

// RemoteDeliverer posts queue entries to the remote sync endpoint.
type RemoteDeliverer struct {
	endpoint string
}

var _ Deliverer = (*RemoteDeliverer)(nil)

func NewRemoteDeliverer(endpoint string) *RemoteDeliverer {
	return &RemoteDeliverer{endpoint: endpoint}
}

func (d *RemoteDeliverer) Deliver(ctx context.Context, entry domain.SyncQueueEntry) error {
	body, err := rebuildRequest(entry)
	if err != nil {
		return err
	}

	var code int
	err = gout.POST(d.endpoint).
		WithContext(ctx).
		SetTimeout(10 * time.Second).
		SetJSON(gout.H{"action": entry.Action, "payload": body}).
		Code(&code).
		Do()
	if err != nil {
		return errors.Wrap(err, "post sync entry")
	}
	if code < http.StatusOK || code >= http.StatusMultipleChoices {
		return errors.Errorf("remote rejected sync entry: status %d", code)
	}
	return nil
}

// rebuildRequest decodes the opaque payload back into the typed shape the
// action was submitted with, so malformed entries fail here instead of
// confusing the remote side.
func rebuildRequest(entry domain.SyncQueueEntry) (interface{}, error) {
	var raw map[string]interface{}
	if err := jsoniter.UnmarshalFromString(entry.Payload, &raw); err != nil {
		return nil, errors.Wrapf(err, "decode payload of entry %d", entry.ID)
	}

	switch entry.Action {
	case domain.ActionCreateSale:
		var sale domain.Sale
		decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			Result:           &sale,
			WeaklyTypedInput: true,
			TagName:          "json",
			DecodeHook:       mapstructure.StringToTimeHookFunc(time.RFC3339),
		})
		if err != nil {
			return nil, err
		}
		if err := decoder.Decode(raw); err != nil {
			return nil, errors.Wrapf(err, "rebuild sale from entry %d", entry.ID)
		}
		return sale, nil
	default:
		// Unknown actions are forwarded as-is, the remote decides.
		return raw, nil
	}
}
