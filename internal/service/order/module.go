package order

import "go.uber.org/fx"

// Module provides the order service and number allocator to Fx.
var Module = fx.Provide(NewService, NewAllocator)
