// Package render merges resolved executor specs into a script template.
//
// Templates use text/template syntax. Every executor contributes the slots
// <name>_image, <name>_command, <name>_args and <name>_holes, which a template
// may reference either as bare identifiers ({{ exec_sdg_op_image }}, the form
// the original Jinja template uses) or as fields ({{ .exec_sdg_op_image }}).
// References are checked against the produced slots before anything is
// executed, so an unproduced slot is reported by name.
package render
