package cluster

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.nanomsg.org/mangos/v3"
	"go.nanomsg.org/mangos/v3/protocol/rep"
	"go.nanomsg.org/mangos/v3/protocol/req"

	// Register all transports
	_ "go.nanomsg.org/mangos/v3/transport/all"
)

const (
	recvTimeout    = 100 * time.Millisecond
	requestTimeout = 2 * time.Second
)

// endpointURL turns host/port configuration into a mangos URL. Addresses
// that already carry a scheme (inproc://, ipc://, tcp://) pass through.
func endpointURL(address string, port int) string {
	if strings.Contains(address, "://") {
		return address
	}
	return fmt.Sprintf("tcp://%s:%d", address, port)
}

// endpoint is the inbound request/reply channel for election and heartbeat
// messages. Receives use a short deadline so the control loop stays
// responsive to stop requests.
type endpoint struct {
	sock mangos.Socket
}

func newEndpoint(address string, port int) (*endpoint, error) {
	sock, err := rep.NewSocket()
	if err != nil {
		return nil, fmt.Errorf("rep socket: %w", err)
	}
	if err := sock.SetOption(mangos.OptionRecvDeadline, recvTimeout); err != nil {
		sock.Close()
		return nil, err
	}
	if err := sock.SetOption(mangos.OptionSendDeadline, requestTimeout); err != nil {
		sock.Close()
		return nil, err
	}
	if err := sock.Listen(endpointURL(address, port)); err != nil {
		sock.Close()
		return nil, fmt.Errorf("listen %s: %w", endpointURL(address, port), err)
	}
	return &endpoint{sock: sock}, nil
}

// receive waits up to the recv deadline for one inbound message. A deadline
// expiry is reported as ok=false with no error.
func (e *endpoint) receive() (Message, bool, error) {
	raw, err := e.sock.Recv()
	if err != nil {
		if err == mangos.ErrRecvTimeout {
			return Message{}, false, nil
		}
		return Message{}, false, err
	}
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		// Malformed payload still needs a reply to keep the rep socket
		// in step; the caller answers with unknown_message_type.
		return Message{}, true, nil
	}
	return msg, true, nil
}

func (e *endpoint) reply(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return e.sock.Send(data)
}

func (e *endpoint) close() error {
	return e.sock.Close()
}

// request dials a peer endpoint, sends one message and decodes one reply.
func request(address string, port int, msg Message, out any) error {
	sock, err := req.NewSocket()
	if err != nil {
		return fmt.Errorf("req socket: %w", err)
	}
	defer sock.Close()

	if err := sock.SetOption(mangos.OptionRecvDeadline, requestTimeout); err != nil {
		return err
	}
	if err := sock.SetOption(mangos.OptionSendDeadline, requestTimeout); err != nil {
		return err
	}
	if err := sock.Dial(endpointURL(address, port)); err != nil {
		return fmt.Errorf("dial %s: %w", endpointURL(address, port), err)
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if err := sock.Send(data); err != nil {
		return err
	}
	raw, err := sock.Recv()
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}
