// Package gantt renders a timeline as a Gantt chart.
//
// Two renderers are provided: an SVG renderer for UI embedding and a
// styled terminal renderer for CLI output. Both are pure functions of
// their inputs: the same timeline and options always produce
// byte-identical output, so renderings can be snapshot-tested and
// cached by content hash.
package gantt
