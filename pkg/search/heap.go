/*****************************************************************************************************************/

//	@author		Michael Roberts <michael@observerly.com>
//	@package	@observerly/kbmgo
//	@license	Copyright © 2021-2025 observerly

/*****************************************************************************************************************/

package search

/*****************************************************************************************************************/

import "github.com/observerly/kbmgo/pkg/trajectory"

/*****************************************************************************************************************/

// trajectoryHeap is a bounded min-heap over trajectory.Less: its root is
// always the worst-ranked trajectory currently kept, so that a new, better
// candidate can be swapped in with a single pop-then-push once the heap is
// full (spec.md §4.5's per-pixel top-R retention).
type trajectoryHeap struct {
	items []trajectory.Trajectory
}

/*****************************************************************************************************************/

func (h *trajectoryHeap) Len() int { return len(h.items) }

/*****************************************************************************************************************/

// Less reports whether items[i] is worse-ranked than items[j], so that
// container/heap keeps the worst element at the root (index 0).
func (h *trajectoryHeap) Less(i, j int) bool {
	return trajectory.Less(h.items[j], h.items[i])
}

/*****************************************************************************************************************/

func (h *trajectoryHeap) Swap(i, j int) {
	h.items[i], h.items[j] = h.items[j], h.items[i]
}

/*****************************************************************************************************************/

func (h *trajectoryHeap) Push(x any) {
	h.items = append(h.items, x.(trajectory.Trajectory))
}

/*****************************************************************************************************************/

func (h *trajectoryHeap) Pop() any {
	old := h.items
	n := len(old)
	item := old[n-1]
	h.items = old[:n-1]
	return item
}

/*****************************************************************************************************************/
