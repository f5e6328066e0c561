package chainrpc

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/danielpatrickdp/digital-cow/internal/dairy"
	"github.com/shopspring/decimal"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"
)

// #region client
// Limits selects the chain a request runs against. Zero fields use the server's herd.
type Limits struct {
	DaysInMilkLimit      int
	LactationNumberLimit int
	Precision            dairy.Precision
}

func (l Limits) fields() map[string]any {
	m := make(map[string]any, 4)
	if l.DaysInMilkLimit > 0 {
		m["days_in_milk_limit"] = l.DaysInMilkLimit
	}
	if l.LactationNumberLimit > 0 {
		m["lactation_number_limit"] = l.LactationNumberLimit
	}
	if l.Precision > 0 {
		m["precision"] = int(l.Precision)
	}
	return m
}

// Successor is one row of a Successors reply.
type Successor struct {
	State       dairy.State
	Probability decimal.Decimal
}

// Client talks to a chain service.
type Client struct {
	conn   grpc.ClientConnInterface
	closer io.Closer
}

// NewClient dials addr without transport security.
func NewClient(addr string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("dial chain service %s: %w", addr, err)
	}
	return &Client{conn: conn, closer: conn}, nil
}

// NewClientConn wraps an existing connection. Close leaves it open.
func NewClientConn(conn grpc.ClientConnInterface) *Client {
	return &Client{conn: conn}
}

func (c *Client) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer.Close()
}

// Describe returns the server's description of the chain for l.
func (c *Client) Describe(ctx context.Context, l Limits) (map[string]any, error) {
	req, err := structpb.NewStruct(l.fields())
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, describeMethod, req, out); err != nil {
		return nil, err
	}
	return out.AsMap(), nil
}

// Successors returns the one-day successors of from with their probabilities.
func (c *Client) Successors(ctx context.Context, l Limits, from dairy.State) ([]Successor, error) {
	m := l.fields()
	m["state"] = map[string]any{
		"phase":            from.Phase.String(),
		"days_in_milk":     from.DaysInMilk,
		"lactation_number": from.LactationNumber,
		"days_pregnant":    from.DaysPregnant,
	}
	req, err := structpb.NewStruct(m)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, successorsMethod, req, out); err != nil {
		return nil, err
	}

	list := out.GetFields()["successors"].GetListValue().GetValues()
	next := make([]Successor, 0, len(list))
	for _, v := range list {
		f := v.GetStructValue()
		st, err := decodeState(f)
		if err != nil {
			return nil, err
		}
		p, err := decimal.NewFromString(f.GetFields()["probability"].GetStringValue())
		if err != nil {
			return nil, fmt.Errorf("decode probability: %w", err)
		}
		next = append(next, Successor{State: st, Probability: p})
	}
	return next, nil
}

// StreamEdges calls fn for every edge the server streams. Returning an error from fn stops
// the stream.
func (c *Client) StreamEdges(ctx context.Context, l Limits, fn func(from, to uint, p decimal.Decimal) error) error {
	req, err := structpb.NewStruct(l.fields())
	if err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stream, err := c.conn.NewStream(ctx, &serviceDesc.Streams[0], streamEdgesMethod)
	if err != nil {
		return err
	}
	if err := stream.SendMsg(req); err != nil {
		return err
	}
	if err := stream.CloseSend(); err != nil {
		return err
	}
	for {
		msg := new(structpb.Struct)
		err := stream.RecvMsg(msg)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		f := msg.GetFields()
		p, err := decimal.NewFromString(f["probability"].GetStringValue())
		if err != nil {
			return fmt.Errorf("decode probability: %w", err)
		}
		if err := fn(uint(f["from"].GetNumberValue()), uint(f["to"].GetNumberValue()), p); err != nil {
			return err
		}
	}
}

func decodeState(f *structpb.Struct) (dairy.State, error) {
	milk, err := decimal.NewFromString(f.GetFields()["milk_output"].GetStringValue())
	if err != nil {
		return dairy.State{}, fmt.Errorf("decode milk output: %w", err)
	}
	return dairy.NewState(
		f.GetFields()["phase"].GetStringValue(),
		intField(f, "days_in_milk", 0),
		intField(f, "lactation_number", 0),
		intField(f, "days_pregnant", 0),
		milk)
}

// #endregion client
