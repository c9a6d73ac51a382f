package route

import (
	"math"
	"sort"

	"canvas/internal/domain"
	"canvas/internal/geometry"
)

// ═══════════════════════════════════════════════════════════════
// Orthogonal connector routing with obstacle avoidance
// Dijkstra over a sparse ruler grid with a bend penalty
// ═══════════════════════════════════════════════════════════════

// clearance inflates obstacles; it stays below the smallest handle offset so
// a handle point never falls inside its own shape's inflated box.
const (
	clearance = 8.0
	margin    = 40.0
)

type rect struct{ x, y, w, h float64 }

func rectOf(s domain.Shape) rect {
	return rect{s.XOffset - clearance, s.YOffset - clearance, s.Width + 2*clearance, s.Height + 2*clearance}
}

// interior reports whether p lies strictly inside r.
func (r rect) interior(p geometry.Point) bool {
	return p.X > r.x && p.X < r.x+r.w && p.Y > r.y && p.Y < r.y+r.h
}

// crosses checks if an axis-aligned segment passes through the interior of r.
func (r rect) crosses(a, b geometry.Point) bool {
	if math.Abs(a.Y-b.Y) < 0.5 {
		if a.Y <= r.y || a.Y >= r.y+r.h {
			return false
		}
		return math.Min(a.X, b.X) < r.x+r.w && math.Max(a.X, b.X) > r.x
	}
	if math.Abs(a.X-b.X) < 0.5 {
		if a.X <= r.x || a.X >= r.x+r.w {
			return false
		}
		return math.Min(a.Y, b.Y) < r.y+r.h && math.Max(a.Y, b.Y) > r.y
	}
	return true
}

// Route returns an orthogonal polyline from start to end that avoids every
// obstacle, or nil when no such route exists. direction names the axis of the
// connecting middle leg: "vertical" leaves and enters horizontally.
func Route(start, end geometry.Point, obstacles []domain.Shape, direction domain.Direction) []geometry.Point {
	if key(start) == key(end) {
		return []geometry.Point{start}
	}

	rects := make([]rect, 0, len(obstacles))
	for _, o := range obstacles {
		r := rectOf(o)
		if r.interior(start) || r.interior(end) {
			return nil
		}
		rects = append(rects, r)
	}

	spots := grid(start, end, rects)
	leave := byte('h')
	if direction == domain.DirectionHorizontal {
		leave = 'v'
	}
	path := dijkstra(spots, start, end, rects, leave)
	if path == nil {
		return nil
	}
	return simplify(path)
}

// RouteOrFallback retries without obstacles when no obstacle-free route
// exists, so the result is never empty.
func RouteOrFallback(start, end geometry.Point, obstacles []domain.Shape, direction domain.Direction) []geometry.Point {
	if p := Route(start, end, obstacles, direction); len(p) > 0 {
		return p
	}
	return Route(start, end, nil, direction)
}

// ── Grid ───────────────────────────────────────────────────

func grid(start, end geometry.Point, rects []rect) []geometry.Point {
	xs := []float64{start.X, end.X, (start.X + end.X) / 2}
	ys := []float64{start.Y, end.Y, (start.Y + end.Y) / 2}
	for _, r := range rects {
		xs = append(xs, r.x, r.x+r.w)
		ys = append(ys, r.y, r.y+r.h)
	}
	xs = uniqSorted(xs)
	ys = uniqSorted(ys)
	xs = uniqSorted(append(xs, xs[0]-margin, xs[len(xs)-1]+margin))
	ys = uniqSorted(append(ys, ys[0]-margin, ys[len(ys)-1]+margin))

	// midpoints between rulers give the router lanes between obstacles
	cellXs := withMidpoints(xs)
	cellYs := withMidpoints(ys)

	seen := map[pkey]bool{}
	var spots []geometry.Point
	for _, x := range cellXs {
		for _, y := range cellYs {
			p := geometry.Point{X: x, Y: y}
			if seen[key(p)] || insideAny(p, rects) {
				continue
			}
			seen[key(p)] = true
			spots = append(spots, p)
		}
	}
	return spots
}

func withMidpoints(vals []float64) []float64 {
	out := make([]float64, 0, 2*len(vals))
	for i, v := range vals {
		out = append(out, v)
		if i < len(vals)-1 {
			out = append(out, (v+vals[i+1])/2)
		}
	}
	return out
}

func insideAny(p geometry.Point, rects []rect) bool {
	for _, r := range rects {
		if r.interior(p) {
			return true
		}
	}
	return false
}

// ── Dijkstra ───────────────────────────────────────────────

type node struct {
	pt   geometry.Point
	dist float64
	prev *node
	dir  byte // 'h', 'v'
}

type edge struct {
	to  pkey
	w   float64
	dir byte
}

func dijkstra(spots []geometry.Point, origin, dest geometry.Point, rects []rect, leave byte) []geometry.Point {
	nodes := make(map[pkey]*node, len(spots))
	byX := map[int64][]geometry.Point{}
	byY := map[int64][]geometry.Point{}
	for _, s := range spots {
		nodes[key(s)] = &node{pt: s, dist: math.Inf(1)}
		byX[round(s.X)] = append(byX[round(s.X)], s)
		byY[round(s.Y)] = append(byY[round(s.Y)], s)
	}
	src, dst := nodes[key(origin)], nodes[key(dest)]
	if src == nil || dst == nil {
		return nil
	}

	blocked := func(a, b geometry.Point) bool {
		for _, r := range rects {
			if r.crosses(a, b) {
				return true
			}
		}
		return false
	}
	adj := map[pkey][]edge{}
	link := func(line []geometry.Point, dir byte, less func(a, b geometry.Point) bool, span func(a, b geometry.Point) float64) {
		sort.Slice(line, func(i, j int) bool { return less(line[i], line[j]) })
		for i := 0; i < len(line)-1; i++ {
			a, b := line[i], line[i+1]
			if blocked(a, b) {
				continue
			}
			w := span(a, b)
			adj[key(a)] = append(adj[key(a)], edge{key(b), w, dir})
			adj[key(b)] = append(adj[key(b)], edge{key(a), w, dir})
		}
	}
	for _, col := range byX {
		link(col, 'v',
			func(a, b geometry.Point) bool { return a.Y < b.Y },
			func(a, b geometry.Point) float64 { return math.Abs(b.Y - a.Y) })
	}
	for _, row := range byY {
		link(row, 'h',
			func(a, b geometry.Point) bool { return a.X < b.X },
			func(a, b geometry.Point) float64 { return math.Abs(b.X - a.X) })
	}

	src.dist = 0
	src.dir = leave
	visited := map[pkey]bool{}
	pq := &queue{}
	pq.push(src)
	for pq.len() > 0 {
		cur := pq.pop()
		ck := key(cur.pt)
		if visited[ck] {
			continue
		}
		visited[ck] = true
		if cur == dst {
			break
		}
		for _, e := range adj[ck] {
			if visited[e.to] {
				continue
			}
			next := nodes[e.to]
			bend := 0.0
			if cur.dir != e.dir {
				bend = (e.w + 1) * (e.w + 1)
			}
			if d := cur.dist + e.w + bend; d < next.dist {
				next.dist = d
				next.prev = cur
				next.dir = e.dir
				pq.push(next)
			}
		}
	}

	if math.IsInf(dst.dist, 1) {
		return nil
	}
	var path []geometry.Point
	for n := dst; n != nil; n = n.prev {
		path = append(path, n.pt)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// queue is a min-heap of nodes keyed by the distance they were pushed with.
type queue []item

type item struct {
	n *node
	d float64
}

func (q *queue) len() int { return len(*q) }

func (q *queue) push(n *node) {
	*q = append(*q, item{n, n.dist})
	i := len(*q) - 1
	for i > 0 {
		p := (i - 1) / 2
		if (*q)[i].d >= (*q)[p].d {
			break
		}
		(*q)[i], (*q)[p] = (*q)[p], (*q)[i]
		i = p
	}
}

func (q *queue) pop() *node {
	old := *q
	top := old[0]
	last := len(old) - 1
	old[0] = old[last]
	*q = old[:last]
	i, n := 0, last
	for {
		s, l, r := i, 2*i+1, 2*i+2
		if l < n && (*q)[l].d < (*q)[s].d {
			s = l
		}
		if r < n && (*q)[r].d < (*q)[s].d {
			s = r
		}
		if s == i {
			break
		}
		(*q)[i], (*q)[s] = (*q)[s], (*q)[i]
		i = s
	}
	return top.n
}

// ── Helpers ────────────────────────────────────────────────

// simplify drops collinear waypoints.
func simplify(pts []geometry.Point) []geometry.Point {
	if len(pts) < 3 {
		return pts
	}
	out := []geometry.Point{pts[0]}
	for i := 1; i < len(pts)-1; i++ {
		prev, cur, next := out[len(out)-1], pts[i], pts[i+1]
		sameX := math.Abs(prev.X-cur.X) < 0.5 && math.Abs(cur.X-next.X) < 0.5
		sameY := math.Abs(prev.Y-cur.Y) < 0.5 && math.Abs(cur.Y-next.Y) < 0.5
		if !sameX && !sameY {
			out = append(out, cur)
		}
	}
	return append(out, pts[len(pts)-1])
}

func round(v float64) int64 { return int64(math.Round(v * 100)) }

type pkey struct{ x, y int64 }

func key(p geometry.Point) pkey { return pkey{round(p.X), round(p.Y)} }

func uniqSorted(vals []float64) []float64 {
	seen := map[int64]bool{}
	var out []float64
	for _, v := range vals {
		if k := round(v); !seen[k] {
			seen[k] = true
			out = append(out, v)
		}
	}
	sort.Float64s(out)
	return out
}
