// Package hcl provides the concrete HCL implementation of the config.Loader
// interface. It is responsible for file discovery, parsing, expression
// evaluation and translation of the decoded blocks into config.Model.
//
// A configuration file may contain one generator block, one compile block,
// a values attribute and any number of executor blocks:
//
//	generator {
//	  manifest = "pipeline.yaml"
//	  template = "standalone.tpl"
//	  output   = "standalone.py"
//	}
//
//	values = {
//	  kfp_model_server_cm = file("sdg/kfp-model-server.yaml")
//	}
//
//	executor "exec-sdg-op" {
//	  stage    = "sdg"
//	  required = true
//	  inputs   = { parameterValues = { num_instructions_to_generate = 2 } }
//	}
//
// Every attribute of an executor block other than stage and required becomes
// part of the executor's binding bundle.
package hcl
