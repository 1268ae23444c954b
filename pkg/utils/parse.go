package utils

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	// range(1;10) yields 1..10 inclusive.
	rangePattern = regexp.MustCompile(`^range\((\d+);\s*(\d+)\)$`)
	// range(start;end;step) yields start, start+step, ... up to end.
	steppedRangePattern = regexp.MustCompile(`^range\((\d+);\s*(\d+);\s*(\d+)\)$`)
)

func atoiAll(strs []string) ([]int, error) {
	nums := make([]int, len(strs))
	for i, str := range strs {
		num, err := strconv.Atoi(str)
		if err != nil {
			return nil, err
		}
		nums[i] = num
	}
	return nums, nil
}

func expandRange(start, end, step int) ([]int, error) {
	if step <= 0 {
		return nil, fmt.Errorf("range step must be positive, got %d", step)
	}
	results := make([]int, 0)
	for i := start; i <= end; i += step {
		results = append(results, i)
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("no results found")
	}
	return results, nil
}

// ParseInts accepts "range(a;b)", "range(a;b;step)" or a comma separated
// list such as "64,512,1472".
func ParseInts(s string) ([]int, error) {
	s = strings.TrimSpace(s)

	if m := rangePattern.FindStringSubmatch(s); m != nil {
		bounds, err := atoiAll(m[1:])
		if err != nil {
			return nil, err
		}
		return expandRange(bounds[0], bounds[1], 1)
	}

	if m := steppedRangePattern.FindStringSubmatch(s); m != nil {
		bounds, err := atoiAll(m[1:])
		if err != nil {
			return nil, err
		}
		return expandRange(bounds[0], bounds[1], bounds[2])
	}

	results := make([]int, 0)
	for _, seg := range strings.Split(s, ",") {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			continue
		}
		num, err := strconv.Atoi(seg)
		if err != nil {
			return nil, fmt.Errorf("invalid integer %q: %v", seg, err)
		}
		results = append(results, num)
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("no results found")
	}
	return results, nil
}

// ParseSizes is ParseInts restricted to payload sizes in [0, max].
func ParseSizes(s string, max int) ([]int, error) {
	sizes, err := ParseInts(s)
	if err != nil {
		return nil, err
	}
	for _, size := range sizes {
		if size < 0 || size > max {
			return nil, fmt.Errorf("size %d out of range [0, %d]", size, max)
		}
	}
	return sizes, nil
}
