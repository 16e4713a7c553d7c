package search

// Match is the best approximate occurrence of a pattern inside a text.
type Match struct {
	Errors int     // Edit operations needed (substitution, insertion, deletion, transposition)
	Start  int     // Rune offset in the text where the occurrence begins
	Score  float64 // 0 is a perfect match at the start of the text
}

// bestMatch finds the occurrence of pattern in text with the lowest score,
// where score = errors/len(pattern) + start/distance. The pattern may begin
// anywhere in the text (free leading gap) and may end anywhere (free
// trailing gap). Adjacent transpositions count as one error.
//
// Both arguments must already be case-folded. pattern must be non-empty.
func bestMatch(pattern, text []rune, distance int) Match {
	var mt matcher
	return mt.match(pattern, text, distance)
}

// matcher keeps the alignment rows between calls so ranking a catalog does
// not allocate per record. A matcher is not safe for concurrent use.
type matcher struct {
	rows [6][]int
}

func (mt *matcher) match(pattern, text []rune, distance int) Match {
	m, n := len(pattern), len(text)

	for i := range mt.rows {
		if cap(mt.rows[i]) < n+1 {
			mt.rows[i] = make([]int, n+1)
		}
		mt.rows[i] = mt.rows[i][:n+1]
	}

	// Three rolling rows of the alignment matrix; start tracks where in the
	// text the alignment ending at each cell began.
	prev2, prev, cur := mt.rows[0], mt.rows[1], mt.rows[2]
	prev2Start, prevStart, curStart := mt.rows[3], mt.rows[4], mt.rows[5]

	for j := 0; j <= n; j++ {
		prev[j] = 0
		prevStart[j] = j
	}

	for i := 1; i <= m; i++ {
		cur[0] = i
		curStart[0] = 0
		for j := 1; j <= n; j++ {
			cost := 1
			if pattern[i-1] == text[j-1] {
				cost = 0
			}

			best, start := prev[j-1]+cost, prevStart[j-1]
			if v := prev[j] + 1; v < best {
				best, start = v, prevStart[j]
			}
			if v := cur[j-1] + 1; v < best {
				best, start = v, curStart[j-1]
			}
			if i > 1 && j > 1 && pattern[i-1] == text[j-2] && pattern[i-2] == text[j-1] {
				if v := prev2[j-2] + 1; v < best {
					best, start = v, prev2Start[j-2]
				}
			}

			cur[j], curStart[j] = best, start
		}
		prev2, prev, cur = prev, cur, prev2
		prev2Start, prevStart, curStart = prevStart, curStart, prev2Start
	}

	result := Match{Score: -1}
	for j := 0; j <= n; j++ {
		s := score(prev[j], m, prevStart[j], distance)
		if result.Score < 0 || s < result.Score || (s == result.Score && prevStart[j] < result.Start) {
			result = Match{Errors: prev[j], Start: prevStart[j], Score: s}
		}
	}
	return result
}

// score combines accuracy and proximity. With distance <= 0 any match that
// does not begin at the start of the text is rejected outright.
func score(errors, patternLen, start, distance int) float64 {
	accuracy := float64(errors) / float64(patternLen)
	if distance <= 0 {
		if start > 0 {
			return 1
		}
		return accuracy
	}
	return accuracy + float64(start)/float64(distance)
}
