// Package placeholder rewrites the templating placeholders a pipeline
// compiler embeds in container command and argument strings.
//
// Three placeholder forms are recognised and rewritten by an ordered list of
// rules, each applied to every string independently:
//
//	{{$.inputs.parameters['KEY']}}      -> {<executor>_KEY}   (named hole)
//	{{$.outputs.artifacts['KEY'].path}} -> {KEY_PATH}         (path sentinel)
//	{{$}}                               -> JSON of the executor's binding bundle
//
// Text outside a match is never touched. A recognised prefix whose key does
// not parse is an error rather than being left in the output.
package placeholder
