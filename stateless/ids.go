package stateless

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	// ChannelSeparator joins the endpoint identity and the stateless callback
	// id before hashing.
	ChannelSeparator = ":^:"
	// UseCaseSeparator joins an interface name and a use case. Interface
	// names must not contain it.
	UseCaseSeparator = "#"
	// RequestReplyIDSeparator joins the random part of a request/reply id and
	// the method correlation id.
	RequestReplyIDSeparator = "::"
)

// ParticipantNamespace is the uuid namespace participant ids are hashed in.
// Changing it changes every participant id in the cluster.
var ParticipantNamespace = uuid.MustParse("0b6e3bc4-6f3c-3c1e-9d4e-7c2f1a5d8e90")

// StatelessCallbackID names the handler logic for interfaceName and useCase.
func StatelessCallbackID(interfaceName, useCase string) string {
	return interfaceName + UseCaseSeparator + useCase
}

// SplitStatelessCallbackID reverses StatelessCallbackID. The use case is
// everything after the last separator.
func SplitStatelessCallbackID(statelessCallbackID string) (interfaceName, useCase string, ok bool) {
	i := strings.LastIndex(statelessCallbackID, UseCaseSeparator)
	if i < 0 {
		return "", "", false
	}
	return statelessCallbackID[:i], statelessCallbackID[i+len(UseCaseSeparator):], true
}

// ParticipantID derives the wire address of a stateless callback hosted on
// endpointID. Identical inputs give identical ids on every node.
func ParticipantID(endpointID, statelessCallbackID string) string {
	full := endpointID + ChannelSeparator + statelessCallbackID
	return uuid.NewMD5(ParticipantNamespace, []byte(full)).String()
}

// ValidateEndpointID rejects identities that cannot be hashed as UTF-8 text.
// Callers treat the error as a fatal configuration problem.
func ValidateEndpointID(endpointID string) error {
	if strings.TrimSpace(endpointID) == "" {
		return fmt.Errorf("%w: empty", ErrInvalidEndpoint)
	}
	if !utf8.ValidString(endpointID) {
		return fmt.Errorf("%w: %q is not valid UTF-8", ErrInvalidEndpoint, endpointID)
	}
	return nil
}

// MethodCorrelationID returns the correlation tag of m.
func MethodCorrelationID(m Method) (string, error) {
	if m.Correlation == "" {
		return "", fmt.Errorf("%w: method %s", ErrMissingCorrelationMetadata, m)
	}
	return m.Correlation, nil
}

// NewRequestReplyID returns a fresh id for one outgoing call targeting m.
func NewRequestReplyID(m Method) (string, error) {
	correlation, err := MethodCorrelationID(m)
	if err != nil {
		return "", err
	}
	return strconv.FormatUint(rand.Uint64(), 10) + RequestReplyIDSeparator + correlation, nil
}

// ExtractMethodCorrelationID returns the part of requestReplyID after the
// first separator.
func ExtractMethodCorrelationID(requestReplyID string) (string, error) {
	if strings.TrimSpace(requestReplyID) == "" {
		return "", fmt.Errorf("%w: %q", ErrMalformedRequestReplyID, requestReplyID)
	}
	_, correlation, found := strings.Cut(requestReplyID, RequestReplyIDSeparator)
	if !found {
		return "", fmt.Errorf("%w: %q", ErrMalformedRequestReplyID, requestReplyID)
	}
	return correlation, nil
}
