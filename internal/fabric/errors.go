package fabric

import (
	"errors"
	"strings"

	"github.com/hyperledger/fabric-gateway/pkg/client"
	gatewaypb "github.com/hyperledger/fabric-protos-go-apiv2/gateway"
	"google.golang.org/grpc/status"
)

// CallError is a failed contract call reduced to the most specific message
// available, usually the reason the chaincode gave for rejecting it.
type CallError struct {
	TransactionID string
	Message       string
	Err           error
}

func (e *CallError) Error() string {
	return e.Message
}

func (e *CallError) Unwrap() error {
	return e.Err
}

func wrapError(err error) error {
	return &CallError{
		TransactionID: TransactionID(err),
		Message:       ErrorMessage(err),
		Err:           err,
	}
}

// ErrorMessage returns the messages of the peers' error details carried in
// the gRPC status of err, or err.Error() when there are none.
func ErrorMessage(err error) string {
	var messages []string
	for _, detail := range status.Convert(err).Details() {
		if d, ok := detail.(*gatewaypb.ErrorDetail); ok && d.GetMessage() != "" {
			messages = append(messages, d.GetMessage())
		}
	}
	if len(messages) > 0 {
		return strings.Join(messages, "; ")
	}
	return err.Error()
}

// TransactionID returns the id of the transaction err refers to, if any.
func TransactionID(err error) string {
	var endorseErr *client.EndorseError
	var submitErr *client.SubmitError
	var commitStatusErr *client.CommitStatusError
	var commitErr *client.CommitError

	switch {
	case errors.As(err, &endorseErr):
		return endorseErr.TransactionID
	case errors.As(err, &submitErr):
		return submitErr.TransactionID
	case errors.As(err, &commitStatusErr):
		return commitStatusErr.TransactionID
	case errors.As(err, &commitErr):
		return commitErr.TransactionID
	}
	return ""
}
