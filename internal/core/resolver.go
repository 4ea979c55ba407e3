package core

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// DefaultMaxDepth bounds resolution of pathologically nested input. The
// guard is a counted check, so hostile input reports a ResolutionError
// instead of exhausting the stack.
const DefaultMaxDepth = 1000

// Resolver walks a value tree bottom-up and dispatches expressions
// through a registry. Arguments resolve left to right, each completing
// before the next starts, and the first failure aborts the walk.
type Resolver struct {
	MaxDepth int
	Log      *zap.Logger

	reg *Registry
}

func NewResolver(reg *Registry) *Resolver {
	return &Resolver{MaxDepth: DefaultMaxDepth, Log: zap.NewNop(), reg: reg}
}

// Registry returns the registry this resolver dispatches through.
func (r *Resolver) Registry() *Registry { return r.reg }

// Resolve reduces v to a value containing no expressions. Scalars pass
// through untouched; lists and map values resolve element by element;
// expressions resolve their arguments and then dispatch.
func (r *Resolver) Resolve(ctx context.Context, v Value) (Value, error) {
	return r.resolve(ctx, v, 0)
}

func (r *Resolver) resolve(ctx context.Context, v Value, depth int) (Value, error) {
	if depth > r.MaxDepth {
		return Value{}, &ResolutionError{Depth: depth, Err: ErrMaxDepth}
	}

	switch v.Kind() {
	case KindList:
		items := v.Items()
		out := make([]Value, len(items))
		for i, item := range items {
			rv, err := r.resolve(ctx, item, depth+1)
			if err != nil {
				return Value{}, err
			}
			out[i] = rv
		}
		return List(out...), nil

	case KindMap:
		entries := v.MapEntries()
		out := make(map[string]Value, len(entries))
		for k, item := range entries {
			rv, err := r.resolve(ctx, item, depth+1)
			if err != nil {
				return Value{}, err
			}
			out[k] = rv
		}
		return MapOf(out), nil

	case KindExpr:
		if err := ctx.Err(); err != nil {
			return Value{}, err
		}
		args := v.Args()
		resolved := make([]Value, len(args))
		for i, arg := range args {
			rv, err := r.resolve(ctx, arg, depth+1)
			if err != nil {
				return Value{}, locate(v.Head(), i, err)
			}
			resolved[i] = rv
		}
		return r.dispatch(ctx, v.Head(), resolved, depth)

	default:
		return v, nil
	}
}

// locate pins a failure to the enclosing operation and argument index.
// A failure located deeper keeps its frame; a depth-guard error not yet
// claimed by any expression gets this frame's position.
func locate(op string, argIndex int, err error) error {
	if direct, ok := err.(*ResolutionError); ok && direct.Op == "" {
		return &ResolutionError{Op: op, ArgIndex: argIndex, Depth: direct.Depth, Err: direct.Err}
	}
	var re *ResolutionError
	if errors.As(err, &re) {
		return err
	}
	return &ResolutionError{Op: op, ArgIndex: argIndex, Err: err}
}

func (r *Resolver) dispatch(ctx context.Context, name string, args []Value, depth int) (Value, error) {
	op, ok := r.reg.Lookup(name)
	if !ok {
		return Value{}, &DispatchError{Kind: UnknownOperation, Name: name}
	}
	r.Log.Debug("dispatch",
		zap.String("op", name),
		zap.Int("args", len(args)),
		zap.Int("depth", depth))
	out, err := op.Handler(ctx, &Call{Name: name, Args: args, res: r, depth: depth})
	if err != nil {
		return Value{}, &DispatchError{Kind: OperationFailed, Name: name, Cause: err}
	}
	return out, nil
}
