package cache

import "context"

// Memoize binds a load function and a key-extraction function into a
// cached callable: each call derives a node from the argument, attaches
// the function as that call's load, and delegates to Get. The node class
// needs no Load of its own.
//
// Method values work unchanged: passing b.Fetch as fn captures the
// receiver, so memoized methods need no separate constructor. Extract
// the node from the same argument set the method sees.
func Memoize[A, V any](fn func(ctx context.Context, a A) (V, error), toNode func(a A) Node[V]) func(ctx context.Context, a A) (V, error) {
	return func(ctx context.Context, a A) (V, error) {
		return getWith(ctx, toNode(a), func(ctx context.Context, _ Node[V]) (V, error) {
			return fn(ctx, a)
		})
	}
}

// Memoize2 is Memoize for two-argument functions.
func Memoize2[A, B, V any](fn func(ctx context.Context, a A, b B) (V, error), toNode func(a A, b B) Node[V]) func(ctx context.Context, a A, b B) (V, error) {
	return func(ctx context.Context, a A, b B) (V, error) {
		return getWith(ctx, toNode(a, b), func(ctx context.Context, _ Node[V]) (V, error) {
			return fn(ctx, a, b)
		})
	}
}

// Memoize3 is Memoize for three-argument functions.
func Memoize3[A, B, C, V any](fn func(ctx context.Context, a A, b B, c C) (V, error), toNode func(a A, b B, c C) Node[V]) func(ctx context.Context, a A, b B, c C) (V, error) {
	return func(ctx context.Context, a A, b B, c C) (V, error) {
		return getWith(ctx, toNode(a, b, c), func(ctx context.Context, _ Node[V]) (V, error) {
			return fn(ctx, a, b, c)
		})
	}
}
