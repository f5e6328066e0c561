package chainrpc

import (
	"context"
	"errors"
	"log/slog"
	"math"

	"github.com/danielpatrickdp/digital-cow/internal/cow"
	"github.com/danielpatrickdp/digital-cow/internal/dairy"
	"github.com/danielpatrickdp/digital-cow/internal/herd"
	"github.com/shopspring/decimal"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// #region server
// Server answers chain queries for one herd, generating spaces through a shared cache.
type Server struct {
	cache  *cow.ChainCache
	params herd.Params
	logger *slog.Logger
}

var _ ChainServiceServer = (*Server)(nil)

// NewServer returns a server for herd p. A nil cache gets a private one.
func NewServer(p herd.Params, cache *cow.ChainCache, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cache == nil {
		cache = cow.NewChainCache(logger, nil)
	}
	return &Server{cache: cache, params: p.Clone(), logger: logger}
}

// space resolves the limits in req, defaulting to the herd's, and fetches the chain.
// A request may shorten the herd's horizon but never extend it.
func (s *Server) space(ctx context.Context, req *structpb.Struct) (*cow.Space, error) {
	dim, err := limitField(req, "days_in_milk_limit", s.params.DaysInMilkLimit, 1, s.params.DaysInMilkLimit)
	if err != nil {
		return nil, err
	}
	ln, err := limitField(req, "lactation_number_limit", s.params.LactationNumberLimit, 0, s.params.LactationNumberLimit+1)
	if err != nil {
		return nil, err
	}
	prec, err := limitField(req, "precision", int(dairy.DefaultPrecision), 1, int(dairy.MaxPrecision))
	if err != nil {
		return nil, err
	}
	sp, err := s.cache.Get(ctx, s.params, dim, ln, dairy.Precision(prec))
	if err != nil {
		return nil, toStatus(err)
	}
	return sp, nil
}

// #endregion server

// #region describe
func (s *Server) Describe(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	sp, err := s.space(ctx, req)
	if err != nil {
		return nil, err
	}
	phases := make(map[string]any, 4)
	for _, ph := range dairy.LifePhases() {
		phases[ph.String()] = 0
	}
	for _, st := range sp.States() {
		phases[st.Phase.String()] = phases[st.Phase.String()].(int) + 1
	}
	out, err := structpb.NewStruct(map[string]any{
		"cache_key":              cow.CacheKey(sp.Params(), sp.DaysInMilkLimit(), sp.LactationNumberLimit(), sp.Precision()),
		"states":                 sp.Len(),
		"days_in_milk_limit":     sp.DaysInMilkLimit(),
		"lactation_number_limit": sp.LactationNumberLimit(),
		"precision":              int(sp.Precision()),
		"phases":                 phases,
	})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "describe: %v", err)
	}
	return out, nil
}

// #endregion describe

// #region successors
func (s *Server) Successors(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	sp, err := s.space(ctx, req)
	if err != nil {
		return nil, err
	}
	from, err := stateField(req, "state")
	if err != nil {
		return nil, err
	}
	if from, err = sp.Resolve(from); err != nil {
		return nil, toStatus(err)
	}
	if _, ok := sp.Index(from); !ok {
		return nil, status.Errorf(codes.NotFound, "state %s is not in the chain", from)
	}

	next, err := sp.Successors(from)
	if err != nil {
		return nil, toStatus(err)
	}
	list := make([]any, 0, len(next))
	for _, to := range next {
		p, err := sp.Probability(from, to)
		if err != nil {
			return nil, toStatus(err)
		}
		m := stateMap(to)
		m["probability"] = p.String()
		list = append(list, m)
	}
	out, err := structpb.NewStruct(map[string]any{"state": stateMap(from), "successors": list})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "successors: %v", err)
	}
	return out, nil
}

// #endregion successors

// #region stream-edges
func (s *Server) StreamEdges(req *structpb.Struct, stream grpc.ServerStream) error {
	ctx := stream.Context()
	sp, err := s.space(ctx, req)
	if err != nil {
		return err
	}
	it := cow.NewEdgeIterator(sp)
	sent := 0
	for it.Next() {
		if err := ctx.Err(); err != nil {
			return status.FromContextError(err).Err()
		}
		e := it.Edge()
		msg, err := structpb.NewStruct(map[string]any{
			"from":        int(e.From),
			"to":          int(e.To),
			"probability": e.Probability.String(),
		})
		if err != nil {
			return status.Errorf(codes.Internal, "stream edges: %v", err)
		}
		if err := stream.SendMsg(msg); err != nil {
			return err
		}
		sent++
	}
	if err := it.Err(); err != nil {
		s.logger.Warn("edge stream stopped", "sent", sent, "error", err)
		return toStatus(err)
	}
	s.logger.Debug("edge stream complete", "sent", sent)
	return nil
}

// #endregion stream-edges

// #region helpers
func intField(req *structpb.Struct, name string, def int) int {
	v, ok := req.GetFields()[name]
	if !ok {
		return def
	}
	return int(v.GetNumberValue())
}

// limitField reads a whole number in [lo, hi], def when absent.
func limitField(req *structpb.Struct, name string, def, lo, hi int) (int, error) {
	v, ok := req.GetFields()[name]
	if !ok {
		return def, nil
	}
	n := v.GetNumberValue()
	if n != math.Trunc(n) || n < float64(lo) || n > float64(hi) {
		return 0, status.Errorf(codes.InvalidArgument, "%s %v outside %d..%d", name, n, lo, hi)
	}
	return int(n), nil
}

func stateField(req *structpb.Struct, name string) (dairy.State, error) {
	v, ok := req.GetFields()[name]
	if !ok || v.GetStructValue() == nil {
		return dairy.State{}, status.Errorf(codes.InvalidArgument, "missing %q", name)
	}
	f := v.GetStructValue()
	phase := f.GetFields()["phase"].GetStringValue()
	if phase == "" {
		phase = dairy.Open.String()
	}
	st, err := dairy.NewState(phase,
		intField(f, "days_in_milk", 0),
		intField(f, "lactation_number", 0),
		intField(f, "days_pregnant", 0),
		decimal.Zero)
	if err != nil {
		return dairy.State{}, toStatus(err)
	}
	return st, nil
}

func stateMap(st dairy.State) map[string]any {
	return map[string]any{
		"phase":            st.Phase.String(),
		"days_in_milk":     st.DaysInMilk,
		"lactation_number": st.LactationNumber,
		"days_pregnant":    st.DaysPregnant,
		"milk_output":      st.MilkOutput.String(),
	}
}

// toStatus maps domain errors onto gRPC codes.
func toStatus(err error) error {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return status.FromContextError(err).Err()
	case errors.Is(err, dairy.ErrInvalidState), errors.Is(err, dairy.ErrValidation):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, dairy.ErrConfiguration), errors.Is(err, dairy.ErrPrecondition):
		return status.Error(codes.FailedPrecondition, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// #endregion helpers
