// Package logging builds the process logger: a colourised tint handler for
// terminals or slog's JSON handler for services, both tagged with the app
// name and version.
package logging
