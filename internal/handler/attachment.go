package handler

import (
	"context"
	"encoding/hex"
	"fmt"

	"go.uber.org/zap"

	"github.com/chainwatch/event-ingest/internal/bns"
	"github.com/chainwatch/event-ingest/internal/decode"
	"github.com/chainwatch/event-ingest/internal/ingesterr"
	"github.com/chainwatch/event-ingest/internal/model"
	"github.com/chainwatch/event-ingest/internal/store"
)

// AttachmentHandler processes /attachments/new messages: zonefile
// payloads paired with BNS metadata, filtered down to the BNS
// attachments before committing a batch.
type AttachmentHandler struct {
	store     store.Store
	extractor *bns.Extractor
	logger    *zap.Logger
}

// NewAttachmentHandler constructs an AttachmentHandler.
func NewAttachmentHandler(s store.Store, extractor *bns.Extractor, logger *zap.Logger) *AttachmentHandler {
	return &AttachmentHandler{store: s, extractor: extractor, logger: logger.Named("attachment_handler")}
}

// Handle decodes, filters, and commits one /attachments/new message.
func (h *AttachmentHandler) Handle(ctx context.Context, body []byte) error {
	msg, err := decode.DecodeCoreNodeMessage(body, decode.MessageAttachments)
	if err != nil {
		return err
	}
	m := msg.(*decode.AttachmentsMessage)

	var out []model.Attachment
	for _, raw := range m.Attachments {
		metaBytes, err := hex.DecodeString(trimHexPrefix(raw.Metadata))
		if err != nil {
			return ingesterr.New(ingesterr.KindDecode, fmt.Errorf("decode attachment metadata hex: %w", err))
		}

		_, name, namespace, err := h.extractor.DecodeAttachmentMetadata(metaBytes)
		if err != nil {
			return err
		}
		if name == "" || namespace == "" {
			// not a BNS attachment; the node also relays other
			// attachment kinds through this endpoint.
			continue
		}

		attachment, err := h.extractor.PairZonefile(metaBytes, trimHexPrefix(raw.ContentHex), raw.ZonefileHash, bns.LogContext{
			TxID:           raw.TxID,
			IndexBlockHash: raw.IndexBlockHash,
			BlockHeight:    raw.BlockHeight,
		})
		if err != nil {
			return err
		}
		out = append(out, attachment)
	}

	if len(out) == 0 {
		return nil
	}
	return h.store.UpdateAttachments(ctx, out)
}
