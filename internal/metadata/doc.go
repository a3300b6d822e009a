// Package metadata validates publish metadata and renders chapter markers into a
// video description.
//
// Both entry points are pure. [Validate] enforces field rules on [models.Metadata];
// [RenderChapters] is the only place chapter timing is checked, so callers pass chapters
// in any order and never pre-sort them.
package metadata
