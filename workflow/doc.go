// Package workflow compiles canvas documents into orchestration workflows.
//
// The Compiler walks the document from its entry node and emits one SIMPLE
// task per program node. A fork is resolved by walking each branch in output
// port order until it reaches a join; the join is the node every branch end
// leads to. Forks nest: a nested fork's FORK and JOIN tasks are spliced into
// the enclosing branch and the nested join stands for that branch's end.
//
// Service gates compilation on graph.Validate and is decorated with
// WithTracing, WithMetrics and WithLogging:
//
//	svc := workflow.NewService(workflow.NewCompiler(opts))
//	svc = workflow.WithLogging(workflow.WithMetrics(workflow.WithTracing(svc), metrics), log)
//	res, err := svc.Compile(ctx, workflow.Request{Document: doc, Metadata: meta})
//
// Batch compiles many documents concurrently while keeping input order.
package workflow
