// Package testutil provides shared fixtures for tests that need a
// realistically shaped pipeline graph.
package testutil

import (
	"testing"

	"github.com/vk/starpipe/internal/pipeline"
)

// SamplePipeline builds a small but representative preprocessing graph:
//
//	Import/job001/  (finished)   -> movies.star
//	MotionCorr/job002/ (running) -> micrographs.star
//	CtfFind/job003/ (running)    -> micrographs_ctf.star
//	AutoPick/job004/ (scheduled) -> coords.star
//
// Each stage consumes its predecessor's output.
func SamplePipeline(tb testing.TB) *pipeline.Graph {
	tb.Helper()
	g := pipeline.New()
	g.SetName("preprocessing")

	imp := addProcess(tb, g, "Import/job001/", pipeline.ProcImport, pipeline.StatusFinished)
	addOutput(tb, g, imp, "Import/job001/movies.star", pipeline.NodeMovie)

	mc := addProcess(tb, g, "MotionCorr/job002/", pipeline.ProcMotionCorr, pipeline.StatusRunning)
	addInput(tb, g, "Import/job001/movies.star", pipeline.NodeMovie, mc)
	addOutput(tb, g, mc, "MotionCorr/job002/micrographs.star", pipeline.NodeMicrograph)

	ctf := addProcess(tb, g, "CtfFind/job003/", pipeline.ProcCTFFind, pipeline.StatusRunning)
	addInput(tb, g, "MotionCorr/job002/micrographs.star", pipeline.NodeMicrograph, ctf)
	addOutput(tb, g, ctf, "CtfFind/job003/micrographs_ctf.star", pipeline.NodeMicrograph)

	pick := addProcess(tb, g, "AutoPick/job004/", pipeline.ProcAutoPick, pipeline.StatusScheduled)
	addInput(tb, g, "CtfFind/job003/micrographs_ctf.star", pipeline.NodeMicrograph, pick)
	addOutput(tb, g, pick, "AutoPick/job004/coords.star", pipeline.NodeCoordinates)

	return g
}

func addProcess(tb testing.TB, g *pipeline.Graph, name string, typ pipeline.ProcessType, status pipeline.Status) pipeline.Handle {
	tb.Helper()
	h, err := g.AddProcess(name, typ, status, false)
	if err != nil {
		tb.Fatalf("adding process %s: %v", name, err)
	}
	return h
}

func addInput(tb testing.TB, g *pipeline.Graph, name string, typ pipeline.NodeType, consumer pipeline.Handle) {
	tb.Helper()
	if _, err := g.AddInputEdge(name, typ, consumer); err != nil {
		tb.Fatalf("adding input edge %s: %v", name, err)
	}
}

func addOutput(tb testing.TB, g *pipeline.Graph, producer pipeline.Handle, name string, typ pipeline.NodeType) {
	tb.Helper()
	if _, err := g.AddOutputEdge(producer, name, typ); err != nil {
		tb.Fatalf("adding output edge %s: %v", name, err)
	}
}
