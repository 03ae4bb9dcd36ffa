/*
 * Licensed to the Apache Software Foundation (ASF) under one or more
 * contributor license agreements.  See the NOTICE file distributed with
 * this work for additional information regarding copyright ownership.
 * The ASF licenses this file to You under the Apache License, Version 2.0
 * (the "License"); you may not use this file except in compliance with
 * the License.  You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// qsketch builds a quantile sketch from one stream item per stdin line and
// prints the resulting distribution. It is a thin collaborator around the
// kll and req packages; all parameters map onto their configurations.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/edoliberty/streaming-quantiles/common"
	"github.com/edoliberty/streaming-quantiles/kll"
	"github.com/edoliberty/streaming-quantiles/req"
)

type options struct {
	k        int
	eps      float64
	itemType string
	errKind  string
	schedule string
	sec      int
	never    int
	always   int
	debug    bool
	print    bool
	csv      bool
	repeat   int
}

func main() {
	var opts options
	flag.IntVar(&opts.k, "k", 0, "accuracy parameter; default 128 (additive) or 50 (relative)")
	flag.Float64Var(&opts.eps, "eps", 0, "target rank error; overrides -k when set")
	flag.StringVar(&opts.itemType, "t", "int", "stream item type: string, int or float")
	flag.StringVar(&opts.errKind, "err", "additive", "error regime: additive or relative")
	flag.StringVar(&opts.schedule, "sch", string(req.ScheduleDeterministic),
		"relative compaction schedule: deterministic, randomized or randomizedLinear")
	flag.IntVar(&opts.sec, "sec", -1, "relative section size; overrides -k and -eps when set")
	flag.IntVar(&opts.never, "never", -1, "relative never-compacted region size (experimental layout)")
	flag.IntVar(&opts.always, "always", -1, "relative always-compacted region size (experimental layout)")
	flag.BoolVar(&opts.debug, "debug", false, "log sketch statistics to stderr")
	flag.BoolVar(&opts.print, "print", false, "print stored items with their ranks instead of the cdf")
	flag.BoolVar(&opts.csv, "csv", false, "print one csv statistics line instead of the cdf")
	flag.IntVar(&opts.repeat, "repeat", 1, "number of times to rebuild the sketch")
	flag.Parse()

	log.SetFlags(0)
	log.SetPrefix("qsketch: ")

	if err := run(opts); err != nil {
		log.Println(err)
		os.Exit(1)
	}
}

func run(opts options) error {
	if opts.repeat < 1 {
		return fmt.Errorf("repeat must be at least 1, got %d: %w", opts.repeat, common.ErrInvalidParameter)
	}
	lines, err := readLines(os.Stdin)
	if err != nil {
		return err
	}
	switch opts.itemType {
	case "int":
		items, err := parseAll(lines, func(s string) (int64, error) {
			return strconv.ParseInt(s, 10, 64)
		})
		if err != nil {
			return err
		}
		return runTyped(opts, items, common.NaturalOrder[int64]())
	case "float":
		items, err := parseAll(lines, func(s string) (float64, error) {
			return strconv.ParseFloat(s, 64)
		})
		if err != nil {
			return err
		}
		return runTyped(opts, items, common.NaturalOrder[float64]())
	case "string":
		return runTyped(opts, lines, common.NaturalOrder[string]())
	default:
		return fmt.Errorf("unknown item type %q: %w", opts.itemType, common.ErrInvalidParameter)
	}
}

func readLines(f *os.File) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading stdin: %w", err)
	}
	return lines, nil
}

func parseAll[C any](lines []string, parse func(string) (C, error)) ([]C, error) {
	items := make([]C, len(lines))
	for i, line := range lines {
		v, err := parse(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		items[i] = v
	}
	return items, nil
}

func runTyped[C comparable](opts options, items []C, compareFn common.CompareFn[C]) error {
	for r := 0; r < opts.repeat; r++ {
		switch opts.errKind {
		case "additive":
			if err := runAdditive(opts, r, items, compareFn); err != nil {
				return err
			}
		case "relative":
			if err := runRelative(opts, r, items, compareFn); err != nil {
				return err
			}
		default:
			return fmt.Errorf("unknown error regime %q: %w", opts.errKind, common.ErrInvalidParameter)
		}
	}
	return nil
}

func runAdditive[C comparable](opts options, r int, items []C, compareFn common.CompareFn[C]) error {
	var sketch *kll.Sketch[C]
	var err error
	if opts.eps > 0 {
		sketch, err = kll.NewFromEpsilon[C](opts.eps, compareFn)
	} else {
		k := opts.k
		if k <= 0 {
			k = kll.DefaultK
		}
		sketch, err = kll.New[C](k, compareFn)
	}
	if err != nil {
		return err
	}
	for _, item := range items {
		sketch.Update(item)
	}
	if opts.debug {
		log.Printf("run %d: n=%d size=%d maxSize=%d levels=%d",
			r, sketch.N(), sketch.Size(), sketch.MaxSize(), sketch.NumLevels())
	}
	switch {
	case opts.csv:
		fmt.Printf("%d;additive;%d;%d;%d;%d;%d\n",
			sketch.N(), sketch.K(), r, sketch.Size(), sketch.MaxSize(), sketch.NumLevels())
	case opts.print:
		printRanks(sketch.Ranks())
	default:
		printCDF(sketch.CDF())
	}
	return nil
}

func runRelative[C comparable](opts options, r int, items []C, compareFn common.CompareFn[C]) error {
	var sketch *req.Sketch[C]
	var err error
	switch {
	case opts.sec > 0 || opts.never >= 0 || opts.always >= 0:
		k := opts.sec
		if k <= 0 {
			k = req.DefaultK
		}
		cfg := req.DefaultConfig(k)
		cfg.Schedule = req.Schedule(opts.schedule)
		cfg.Never = opts.never
		cfg.Always = opts.always
		sketch, err = req.NewWithConfig[C](cfg, compareFn)
	case opts.eps > 0:
		sketch, err = req.NewFromEpsilon[C](opts.eps, compareFn)
	default:
		k := opts.k
		if k <= 0 {
			k = req.DefaultK
		}
		cfg := req.DefaultConfig(k)
		cfg.Schedule = req.Schedule(opts.schedule)
		sketch, err = req.NewWithConfig[C](cfg, compareFn)
	}
	if err != nil {
		return err
	}
	for _, item := range items {
		sketch.Update(item)
	}
	if opts.debug {
		log.Printf("run %d: n=%d size=%d maxSize=%d levels=%d maxStored=%d",
			r, sketch.N(), sketch.Size(), sketch.MaxSize(), sketch.NumLevels(),
			req.MaxStoredItems(sketch.K(), sketch.N()))
	}
	switch {
	case opts.csv:
		fmt.Printf("%d;%s;%d;%d;%d;%d;%d\n",
			sketch.N(), opts.schedule, sketch.K(), r, sketch.Size(), sketch.MaxSize(), sketch.NumLevels())
	case opts.print:
		printRanks(sketch.Ranks())
	default:
		printCDF(sketch.CDF())
	}
	return nil
}

func printRanks[C comparable](ranks []common.ItemWeight[C]) {
	for _, p := range ranks {
		fmt.Printf("%v\t%d\n", p.Item, p.Weight)
	}
}

func printCDF[C comparable](cdf []common.CDFEntry[C]) {
	for _, e := range cdf {
		fmt.Printf("%v\t%f\n", e.Item, e.Fraction)
	}
}
