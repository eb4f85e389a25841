package matching

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"marker-overlay/internal/features"
)

func randomSet(rng *rand.Rand, n, dim int, norm features.Norm) features.DescriptorSet {
	set := features.DescriptorSet{Norm: norm, Vectors: make([][]float32, n)}
	for i := range set.Vectors {
		v := make([]float32, dim)
		for j := range v {
			if norm == features.NormHamming {
				v[j] = float32(rng.Intn(256))
			} else {
				v[j] = rng.Float32()
			}
		}
		set.Vectors[i] = v
	}
	return set
}

func TestMatchersReturnOneMatchPerQuery(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	cases := []struct {
		name    string
		matcher Matcher
		norm    features.Norm
		nQuery  int
		nTrain  int
	}{
		{"kdtree more queries", KDTreeMatcher{}, features.NormL2, 50, 10},
		{"kdtree fewer queries", KDTreeMatcher{}, features.NormL2, 3, 40},
		{"bruteforce hamming", BruteForceMatcher{}, features.NormHamming, 25, 25},
		{"single train", KDTreeMatcher{}, features.NormL2, 12, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			query := randomSet(rng, tc.nQuery, 16, tc.norm)
			train := randomSet(rng, tc.nTrain, 16, tc.norm)
			matches, err := tc.matcher.Match(query, train)
			if err != nil {
				t.Fatalf("Match returned error: %v", err)
			}
			if len(matches) != tc.nQuery {
				t.Fatalf("got %d matches, want %d", len(matches), tc.nQuery)
			}
			for i, m := range matches {
				if m.QueryIdx != i {
					t.Fatalf("match %d has query index %d", i, m.QueryIdx)
				}
				if m.TrainIdx < 0 || m.TrainIdx >= tc.nTrain {
					t.Fatalf("match %d has out of range train index %d", i, m.TrainIdx)
				}
			}
		})
	}
}

func TestKDTreeAgreesWithBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	query := randomSet(rng, 40, 8, features.NormL2)
	train := randomSet(rng, 60, 8, features.NormL2)

	kd, err := KDTreeMatcher{}.Match(query, train)
	if err != nil {
		t.Fatalf("kdtree: %v", err)
	}
	bf, err := BruteForceMatcher{}.Match(query, train)
	if err != nil {
		t.Fatalf("bruteforce: %v", err)
	}
	for i := range kd {
		if math.Abs(kd[i].Distance-bf[i].Distance) > 1e-9 {
			t.Fatalf("query %d: kdtree distance %v, brute force %v", i, kd[i].Distance, bf[i].Distance)
		}
	}
}

func TestMatchFindsIdenticalDescriptor(t *testing.T) {
	train := features.DescriptorSet{Vectors: [][]float32{{0, 0}, {10, 10}, {5, 1}}}
	query := features.DescriptorSet{Vectors: [][]float32{{5, 1}, {9, 9}}}
	matches, err := KDTreeMatcher{}.Match(query, train)
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if matches[0].TrainIdx != 2 || matches[0].Distance != 0 {
		t.Fatalf("unexpected first match %+v", matches[0])
	}
	if matches[1].TrainIdx != 1 {
		t.Fatalf("unexpected second match %+v", matches[1])
	}
}

func TestMatchRejectsEmptySets(t *testing.T) {
	full := features.DescriptorSet{Vectors: [][]float32{{1}}}
	empty := features.DescriptorSet{}
	for _, m := range []Matcher{KDTreeMatcher{}, BruteForceMatcher{}} {
		if _, err := m.Match(empty, full); !errors.Is(err, ErrEmptyDescriptors) {
			t.Fatalf("%T: expected ErrEmptyDescriptors for empty query, got %v", m, err)
		}
		if _, err := m.Match(full, empty); !errors.Is(err, ErrEmptyDescriptors) {
			t.Fatalf("%T: expected ErrEmptyDescriptors for empty train, got %v", m, err)
		}
	}
}

func TestNewMatcherSelectsByNorm(t *testing.T) {
	if _, ok := NewMatcher(features.NormHamming).(BruteForceMatcher); !ok {
		t.Fatal("expected brute force matcher for Hamming descriptors")
	}
	if _, ok := NewMatcher(features.NormL2).(KDTreeMatcher); !ok {
		t.Fatal("expected k-d tree matcher for float descriptors")
	}
}

func matchesWith(distances ...float64) []Match {
	out := make([]Match, len(distances))
	for i, d := range distances {
		out[i] = Match{QueryIdx: i, TrainIdx: i, Distance: d}
	}
	return out
}

func TestFilterKeepsMatchesBelowThreeTimesMinimum(t *testing.T) {
	cases := []struct {
		name      string
		distances []float64
		want      []int
	}{
		{"general", []float64{0.5, 0.25, 0.76, 0.74, 0.75, 1.2}, []int{0, 1, 3}},
		{"constant", []float64{0.4, 0.4, 0.4}, []int{0, 1, 2}},
		{"zero minimum keeps exact matches", []float64{0, 0.1, 0, 2}, []int{0, 2}},
		{"all zero are all kept", []float64{0, 0, 0}, []int{0, 1, 2}},
		{"single", []float64{7}, []int{0}},
		{"empty", nil, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := Filter(matchesWith(tc.distances...), DefaultDistanceFactor)
			if len(res.Good) != len(tc.want) {
				t.Fatalf("kept %d matches, want %d: %+v", len(res.Good), len(tc.want), res.Good)
			}
			for i, idx := range tc.want {
				if res.Good[i].QueryIdx != idx {
					t.Fatalf("kept match %d has query %d, want %d", i, res.Good[i].QueryIdx, idx)
				}
			}
		})
	}
}

func TestFilterMatchesSetDefinition(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for trial := 0; trial < 50; trial++ {
		n := 1 + rng.Intn(30)
		distances := make([]float64, n)
		minDist := math.Inf(1)
		for i := range distances {
			distances[i] = rng.Float64()
			minDist = math.Min(minDist, distances[i])
		}
		res := Filter(matchesWith(distances...), DefaultDistanceFactor)

		want := 0
		for _, d := range distances {
			if d < 3*minDist {
				want++
			}
		}
		if len(res.Good) != want {
			t.Fatalf("trial %d: kept %d, want %d", trial, len(res.Good), want)
		}
		if res.MinDist != minDist {
			t.Fatalf("trial %d: min %v, want %v", trial, res.MinDist, minDist)
		}
	}
}

func TestFilterReportsRange(t *testing.T) {
	res := Filter(matchesWith(0.3, 0.9, 0.1), DefaultDistanceFactor)
	if res.MinDist != 0.1 || res.MaxDist != 0.9 {
		t.Fatalf("unexpected range min=%v max=%v", res.MinDist, res.MaxDist)
	}
}
