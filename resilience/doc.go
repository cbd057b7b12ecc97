// Package resilience bounds how much work the compiler accepts at once.
//
// A Bulkhead hands out a fixed number of slots; callers beyond that wait up
// to MaxWait and are then refused:
//
//	bh := resilience.NewBulkhead(resilience.BulkheadConfig{Name: "compile", MaxConcurrent: 8})
//	err := bh.Execute(ctx, func() error {
//	    _, err := svc.Compile(ctx, req)
//	    return err
//	})
package resilience
