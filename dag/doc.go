// Package dag holds a small directed graph with Kahn levelling and cycle
// search. The compiler uses it to reject cyclic canvases before walking them.
package dag
