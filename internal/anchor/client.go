package anchor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/fomo-labs/docproof/internal/common"
)

// Receipt is the anchoring service's acknowledgement of a submitted hash.
type Receipt struct {
	TxRef        string
	ExplorerLink string
}

// Client talks to the external anchoring service, which writes content
// hashes into Solana memo transactions. Anchoring is best effort: proofs
// are fully verifiable without it, it only adds an independent public
// timestamp.
type Client struct {
	cfg common.AnchorConfig
	hc  *http.Client
	log *slog.Logger
}

func NewClient(cfg common.AnchorConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Cluster == "" {
		cfg.Cluster = "devnet"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		cfg: cfg,
		hc:  &http.Client{Timeout: cfg.Timeout},
		log: logger,
	}
}

type anchorRequest struct {
	ContentHash   string `json:"content_hash"`
	ProofID       string `json:"proof_id"`
	WalletAddress string `json:"wallet_address,omitempty"`
	Cluster       string `json:"cluster"`
}

type anchorResponse struct {
	Signature string `json:"signature"`
}

// Anchor submits a content hash and returns the transaction reference plus
// a human-followable explorer link.
func (c *Client) Anchor(ctx context.Context, contentHash, proofID string) (*Receipt, error) {
	if c.cfg.Endpoint == "" {
		return nil, common.NewAppError("ANCHOR_DISABLED", "anchor endpoint not configured", common.ErrInvalidInput)
	}

	body, err := json.Marshal(anchorRequest{
		ContentHash:   contentHash,
		ProofID:       proofID,
		WalletAddress: c.cfg.WalletAddress,
		Cluster:       c.cfg.Cluster,
	})
	if err != nil {
		return nil, common.WrapError(err, "encode anchor request")
	}

	raw, err := c.post(ctx, strings.TrimRight(c.cfg.Endpoint, "/")+"/anchor", body)
	if err != nil {
		c.log.Error("anchor.submit_failed", "proof_id", proofID, "error", err)
		return nil, common.WrapError(err, "submit anchor")
	}

	var resp anchorResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, common.WrapError(err, "decode anchor response")
	}
	if resp.Signature == "" {
		return nil, common.NewAppError("ANCHOR_EMPTY", "anchor response carries no signature", common.ErrInvalidInput)
	}

	receipt := &Receipt{
		TxRef:        resp.Signature,
		ExplorerLink: ExplorerLink(resp.Signature, c.cfg.Cluster),
	}
	c.log.Info("anchor.submit_ok", "proof_id", proofID, "tx_ref", receipt.TxRef)
	return receipt, nil
}

type statusResponse struct {
	Confirmed bool `json:"confirmed"`
}

// Confirmed reports whether a previously submitted transaction has been
// finalized on chain.
func (c *Client) Confirmed(ctx context.Context, txRef string) (bool, error) {
	raw, err := c.post(ctx, strings.TrimRight(c.cfg.Endpoint, "/")+"/status",
		[]byte(fmt.Sprintf(`{"signature":%q,"cluster":%q}`, txRef, c.cfg.Cluster)))
	if err != nil {
		return false, common.WrapError(err, "query anchor status")
	}
	var resp statusResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return false, common.WrapError(err, "decode status response")
	}
	return resp.Confirmed, nil
}

func (c *Client) post(ctx context.Context, url string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("non-2xx status: %d", resp.StatusCode)
	}
	return raw, nil
}

// ExplorerLink renders the public explorer URL for a transaction.
func ExplorerLink(txRef, cluster string) string {
	return fmt.Sprintf("https://explorer.solana.com/tx/%s?cluster=%s", txRef, cluster)
}
