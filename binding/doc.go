// Package binding keeps program variables in sync with scene state while
// uploading as little as possible.
//
// The graph has two tiers. A Global mirrors one distinct external source,
// such as "the color of the first directional light", and subscribes to
// the events that signal its change. A Renderer binds one program
// variable of one program to a Global. Invalidating a Global marks every
// registered Renderer dirty; at draw time each dirty Renderer reads the
// current value from the FrameState and assigns it to its ProgramVariable,
// which flags it for upload. Renderers for per-object state (world
// transform, bone palette) are ungated and recompute on every draw.
//
// Both tiers are closed sum types with scalar, array and struct variants.
// Arrays update elements in ascending order and never past the number of
// live sources; structs update fields in declaration order.
//
// A Catalog owns the Globals of one scene and builds a Bundle of Renderers
// for each program from the variable names the program actually declares.
// Names without a built-in source are bound to material properties through
// Custom bindings.
package binding
