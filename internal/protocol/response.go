package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/dmitrijs2005/punchclock/internal/common"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

const (
	MessageSuccess     = "Ponto registrado com sucesso."
	MessageDuplicate   = "Já foi registrado o ponto para hoje."
	MessageDecode      = "Requisição inválida."
	MessagePersistence = "Falha ao gravar o registro de ponto."
	MessageInternal    = "Erro interno do servidor."
)

// Response is the reply envelope.
type Response struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// OK reports whether the response confirms a registration.
func (r Response) OK() bool { return r.Status == StatusSuccess }

func Success() Response {
	return Response{Status: StatusSuccess, Message: MessageSuccess}
}

// Failure maps err onto the closed error taxonomy. Errors that match none
// of the known kinds are reported as internal.
func Failure(err error) Response {
	msg := MessageInternal
	switch {
	case errors.Is(err, common.ErrDuplicate):
		msg = MessageDuplicate
	case errors.Is(err, common.ErrDecode):
		msg = MessageDecode
	case errors.Is(err, common.ErrPersistence):
		msg = MessagePersistence
	}
	return Response{Status: StatusError, Message: msg}
}

// Kind names the taxonomy bucket of err, for logs and metrics.
func Kind(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, common.ErrDuplicate):
		return "duplicate"
	case errors.Is(err, common.ErrDecode):
		return "decode"
	case errors.Is(err, common.ErrPersistence):
		return "persistence"
	default:
		return "internal"
	}
}

// WriteResponse encodes resp and sends it with a single Write.
func WriteResponse(w io.Writer, resp Response) error {
	b, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

// ReadResponse decodes one response from r.
func ReadResponse(r io.Reader) (Response, error) {
	var resp Response
	if err := json.NewDecoder(r).Decode(&resp); err != nil {
		return Response{}, fmt.Errorf("decode response: %w", err)
	}
	if resp.Status != StatusSuccess && resp.Status != StatusError {
		return Response{}, fmt.Errorf("decode response: unknown status %q", resp.Status)
	}
	return resp, nil
}
