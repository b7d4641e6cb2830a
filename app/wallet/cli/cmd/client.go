package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/go-resty/resty/v2"
)

// These mirror the json documents of the node public api.
type (
	unspent struct {
		TxID  string `json:"tx_id"`
		Index int    `json:"index"`
		Value string `json:"value"`
	}

	balance struct {
		Address string    `json:"address"`
		Name    string    `json:"name"`
		Balance string    `json:"balance"`
		Unspent []unspent `json:"unspent"`
	}

	input struct {
		TxID        string `json:"tx_id"`
		OutputIndex int    `json:"output_index"`
		Signature   string `json:"signature,omitempty"`
		PublicKey   string `json:"public_key,omitempty"`
	}

	output struct {
		Value   string `json:"value"`
		Address string `json:"address"`
	}

	tx struct {
		ID      string   `json:"id"`
		Inputs  []input  `json:"inputs"`
		Outputs []output `json:"outputs"`
		Fee     string   `json:"fee,omitempty"`
	}

	submitted struct {
		Status string `json:"status"`
		ID     string `json:"id"`
	}

	payment struct {
		To           string `json:"to"`
		Amount       string `json:"amount"`
		HighPriority bool   `json:"high_priority"`
		NewAddress   bool   `json:"new_address"`
	}

	apiError struct {
		Error  string            `json:"error"`
		Fields map[string]string `json:"fields,omitempty"`
	}
)

// client calls the public api of a node.
type client struct {
	rc *resty.Client
}

func newClient(baseURL string) *client {
	rc := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10*time.Second).
		SetHeader("Content-Type", "application/json")

	return &client{rc: rc}
}

func (c *client) balance(ctx context.Context, address string) (balance, error) {
	var bal balance
	if err := c.do(ctx, "GET", "/v1/balance/"+address, nil, &bal); err != nil {
		return balance{}, err
	}
	return bal, nil
}

func (c *client) mempool(ctx context.Context) ([]tx, error) {
	var trans []tx
	if err := c.do(ctx, "GET", "/v1/mempool", nil, &trans); err != nil {
		return nil, err
	}
	return trans, nil
}

func (c *client) submit(ctx context.Context, t tx) (submitted, error) {
	var resp submitted
	if err := c.do(ctx, "POST", "/v1/tx/submit", t, &resp); err != nil {
		return submitted{}, err
	}
	return resp, nil
}

func (c *client) send(ctx context.Context, p payment) (tx, error) {
	var resp tx
	if err := c.do(ctx, "POST", "/v1/wallet/send", p, &resp); err != nil {
		return tx{}, err
	}
	return resp, nil
}

func (c *client) do(ctx context.Context, method string, path string, body any, result any) error {
	var apiErr apiError

	req := c.rc.R().
		SetContext(ctx).
		SetResult(result).
		SetError(&apiErr)

	if body != nil {
		req.SetBody(body)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}

	if resp.IsError() {
		if len(apiErr.Fields) > 0 {
			return fmt.Errorf("%s %s: %s: %s: %v", method, path, resp.Status(), apiErr.Error, apiErr.Fields)
		}
		return fmt.Errorf("%s %s: %s: %s", method, path, resp.Status(), apiErr.Error)
	}

	return nil
}

// =============================================================================

func toTx(dbTx database.Tx) tx {
	t := tx{
		ID:      dbTx.ID,
		Inputs:  make([]input, len(dbTx.Inputs)),
		Outputs: make([]output, len(dbTx.Outputs)),
		Fee:     dbTx.Fee.String(),
	}

	for i, in := range dbTx.Inputs {
		t.Inputs[i] = input{
			TxID:        in.TxID,
			OutputIndex: in.OutputIndex,
			Signature:   in.SignatureString(),
			PublicKey:   hexutil.Encode(in.PublicKey),
		}
	}

	for i, out := range dbTx.Outputs {
		t.Outputs[i] = output{
			Value:   out.Value.String(),
			Address: out.Address,
		}
	}

	return t
}
