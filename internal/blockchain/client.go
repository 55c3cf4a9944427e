package blockchain

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hyperledger/sawtooth-sdk-go/protobuf/transaction_pb2"
	"github.com/hyperledger/sawtooth-sdk-go/signing"
	"go.uber.org/zap"
	"google.golang.org/protobuf/proto"
	"gopkg.in/yaml.v3"
)

const (
	batchSubmitAPI         string = "batches"
	batchStatusAPI         string = "batch_statuses"
	contentTypeOctetStream string = "application/octet-stream"

	statusPending string = "PENDING"
	statusInvalid string = "INVALID"

	// seconds the validator is asked to hold the status request
	wait uint = 5
)

var (
	ErrBatchInvalid = errors.New("batch rejected by the validator")

	errNotFound = errors.New("responded with status 404")
)

type Client struct {
	logger *zap.Logger
	url    string
	client *http.Client
}

func NewClient(logger *zap.Logger, validatorRestAPIUrl string) *Client {
	url := strings.TrimSuffix(validatorRestAPIUrl, "/")
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		url = "http://" + url
	}

	return &Client{
		logger: logger,
		url:    url,
		client: &http.Client{Timeout: time.Duration(wait+5) * time.Second},
	}
}

// Submit sends the transactions as a single batch signed by signer and
// waits up to a few seconds for the validator to leave the PENDING status.
// It returns the final status reported for the batch.
func (c Client) Submit(ctx context.Context, signer *signing.Signer, transactions ...*transaction_pb2.Transaction) (string, error) {
	if len(transactions) == 0 {
		return "", errors.New("no transactions to submit")
	}

	rawBatchList, err := createBatchList(transactions, signer)
	if err != nil {
		return "", fmt.Errorf("unable to construct batch list: %v", err)
	}
	batchID := rawBatchList.Batches[0].HeaderSignature
	batchList, err := proto.Marshal(rawBatchList)
	if err != nil {
		return "", fmt.Errorf("unable to serialize batch list: %v", err)
	}

	response, err := c.sendRequest(ctx, batchSubmitAPI, batchList, contentTypeOctetStream)
	if err != nil {
		return "", err
	}
	c.logger.Debug("batch submitted", zap.String("batchID", batchID), zap.String("response", response))

	startTime := time.Now()
	status := statusPending
	for status == statusPending {
		elapsed := uint(time.Since(startTime) / time.Second)
		if elapsed >= wait {
			break
		}
		status, err = c.getStatus(ctx, batchID, wait-elapsed)
		if err != nil {
			return "", err
		}
	}

	c.logger.Info("batch status", zap.String("batchID", batchID), zap.String("status", status))
	if status == statusInvalid {
		return status, ErrBatchInvalid
	}
	return status, nil
}

func (c Client) getStatus(ctx context.Context, batchID string, wait uint) (string, error) {

	// API to call
	apiSuffix := fmt.Sprintf("%s?id=%s&wait=%d",
		batchStatusAPI, batchID, wait)
	response, err := c.sendRequest(ctx, apiSuffix, []byte{}, "")
	if err != nil {
		return "", err
	}

	return parseStatus(response)
}

func parseStatus(response string) (string, error) {
	responseMap := make(map[string]interface{})
	if err := yaml.Unmarshal([]byte(response), &responseMap); err != nil {
		return "", fmt.Errorf("error reading response: %v", err)
	}

	data, ok := responseMap["data"].([]interface{})
	if !ok || len(data) == 0 {
		return "", errors.New("batch status response carries no data")
	}
	entry, ok := data[0].(map[string]interface{})
	if !ok {
		return "", errors.New("unexpected batch status entry")
	}
	return fmt.Sprint(entry["status"]), nil
}

func (c Client) sendRequest(
	ctx context.Context,
	apiSuffix string,
	data []byte,
	contentType string) (string, error) {

	url := fmt.Sprintf("%s/%s", c.url, apiSuffix)

	method := http.MethodGet
	if len(data) > 0 {
		method = http.MethodPost
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewBuffer(data))
	if err != nil {
		return "", errors.New("failed to create the request: " + err.Error())
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	response, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to connect to REST API: %v", err)
	}
	defer response.Body.Close()

	if response.StatusCode == http.StatusNotFound {
		c.logger.Debug("validator responded with 404", zap.String("url", url))
		return "", errNotFound
	} else if response.StatusCode >= 400 {
		return "", fmt.Errorf("error %d: %s", response.StatusCode, response.Status)
	}

	reponseBody, err := io.ReadAll(response.Body)
	if err != nil {
		return "", fmt.Errorf("error reading response: %v", err)
	}
	return string(reponseBody), nil
}
