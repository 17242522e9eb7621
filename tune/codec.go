package tune

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
)

// Encode writes a to w in the artifact text grammar. Writes are
// deterministic: the same in-memory Artifact always serializes to the same
// bytes, so parse(Encode(a)) reproduces a exactly.
func Encode(w io.Writer, a *Artifact) error {
	bw := bufio.NewWriter(w)

	nProfiles := a.NProfiles()
	if _, err := fmt.Fprintf(bw, "%d %s %s %d %s %d %d %d %d\n",
		a.Version, a.ModelTag, a.QTypeTag, int(a.GPUBackend), encodeGPUTag(a.GPUTag),
		len(a.Shapes), a.MStep, a.MNum, nProfiles); err != nil {
		return err
	}

	for _, layout := range a.ProfileLayout {
		for j := 0; j < numStages; j++ {
			parallel, wait := bitsFor(layout[j].Concurrency)
			sep := " "
			if j == numStages-1 {
				sep = "\n"
			}
			if _, err := fmt.Fprintf(bw, "%d %d %d%s", int(layout[j].Backend), parallel, wait, sep); err != nil {
				return err
			}
		}
	}

	for shapeIdx, shape := range a.Shapes {
		if _, err := fmt.Fprintf(bw, "%d %d\n", shape.N, shape.K); err != nil {
			return err
		}
		for mIdx := 0; mIdx < a.MNum; mIdx++ {
			if _, err := fmt.Fprintf(bw, "%d", a.MAt(mIdx)); err != nil {
				return err
			}
			for p := 0; p < nProfiles; p++ {
				e := a.Entry(shapeIdx, mIdx, p)
				for s := 0; s < numStages; s++ {
					if _, err := fmt.Fprintf(bw, " %d", e[s]); err != nil {
						return err
					}
				}
			}
			if _, err := bw.WriteString("\n"); err != nil {
				return err
			}
		}
	}

	return bw.Flush()
}

// emptyGPUTag is the placeholder token for a CPU-only artifact's GPUTag,
// which would otherwise serialize to nothing and desync every whitespace-
// tokenized field that follows it.
const emptyGPUTag = "-"

func encodeGPUTag(tag string) string {
	if tag == "" {
		return emptyGPUTag
	}
	return tag
}

func decodeGPUTag(tok string) string {
	if tok == emptyGPUTag {
		return ""
	}
	return tok
}

// bitsFor maps a StageConcurrency to the (parallel, wait) bit pair the
// grammar stores alongside the backend id, following the original's
// GGML_TASK_FLAG_T1/_T1_WAIT/_TN encoding (see mulmat-tune.h).
func bitsFor(c StageConcurrency) (parallel, wait int) {
	switch c {
	case AllParallel:
		return 1, 0
	case SingleWait:
		return 0, 1
	default: // SingleNoWait, Absent
		return 0, 0
	}
}

// concurrencyFor is the inverse of bitsFor, additionally consulting the
// backend: a BackendUnknown stage is always Absent regardless of the bits.
func concurrencyFor(backend Backend, parallel, wait int) StageConcurrency {
	if backend == BackendUnknown {
		return Absent
	}
	switch {
	case parallel != 0:
		return AllParallel
	case wait != 0:
		return SingleWait
	default:
		return SingleNoWait
	}
}

// tokenReader sequentially consumes whitespace-separated tokens (spaces or
// newlines) from the input, matching the grammar's free-form tokenization.
type tokenReader struct {
	sc *bufio.Scanner
}

func newTokenReader(r io.Reader) *tokenReader {
	sc := bufio.NewScanner(r)
	sc.Split(bufio.ScanWords)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &tokenReader{sc: sc}
}

func (t *tokenReader) next() (string, error) {
	if !t.sc.Scan() {
		if err := t.sc.Err(); err != nil {
			return "", fmt.Errorf("%w: %v", ErrArtifactParse, err)
		}
		return "", fmt.Errorf("%w: unexpected end of input", ErrArtifactParse)
	}
	return t.sc.Text(), nil
}

func (t *tokenReader) nextInt() (int, error) {
	tok, err := t.next()
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(tok)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not an integer: %v", ErrArtifactParse, tok, err)
	}
	return v, nil
}

// Decode reads an Artifact from r in the artifact text grammar. It rejects
// any version other than CurrentVersion, any count that disagrees with the
// header, and any non-zero stage time on an Absent slot.
func Decode(r io.Reader) (*Artifact, error) {
	tr := newTokenReader(r)

	version, err := tr.nextInt()
	if err != nil {
		return nil, err
	}
	if version != CurrentVersion {
		return nil, fmt.Errorf("%w: unsupported artifact version %d (want %d)", ErrArtifactParse, version, CurrentVersion)
	}

	model, err := tr.next()
	if err != nil {
		return nil, err
	}
	qType, err := tr.next()
	if err != nil {
		return nil, err
	}
	backendID, err := tr.nextInt()
	if err != nil {
		return nil, err
	}
	gpuTag, err := tr.next()
	if err != nil {
		return nil, err
	}
	nShapes, err := tr.nextInt()
	if err != nil {
		return nil, err
	}
	mStep, err := tr.nextInt()
	if err != nil {
		return nil, err
	}
	mNum, err := tr.nextInt()
	if err != nil {
		return nil, err
	}
	nProfiles, err := tr.nextInt()
	if err != nil {
		return nil, err
	}
	if nShapes <= 0 || nProfiles <= 0 {
		return nil, fmt.Errorf("%w: n_shapes=%d n_profiles=%d must both be positive", ErrArtifactParse, nShapes, nProfiles)
	}

	layout := make([][numStages]StageConf, nProfiles)
	for p := 0; p < nProfiles; p++ {
		for s := 0; s < numStages; s++ {
			backend, err := tr.nextInt()
			if err != nil {
				return nil, err
			}
			parallel, err := tr.nextInt()
			if err != nil {
				return nil, err
			}
			wait, err := tr.nextInt()
			if err != nil {
				return nil, err
			}
			layout[p][s] = StageConf{
				Backend:     Backend(backend),
				Concurrency: concurrencyFor(Backend(backend), parallel, wait),
			}
		}
	}

	shapes := make([]Shape, nShapes)
	entries := make([]StagesTime, nShapes*mNum*nProfiles)
	for shapeIdx := 0; shapeIdx < nShapes; shapeIdx++ {
		n, err := tr.nextInt()
		if err != nil {
			return nil, err
		}
		k, err := tr.nextInt()
		if err != nil {
			return nil, err
		}
		shapes[shapeIdx] = Shape{N: n, K: k}

		for mIdx := 0; mIdx < mNum; mIdx++ {
			m, err := tr.nextInt()
			if err != nil {
				return nil, err
			}
			wantM := mStep * (mIdx + 1)
			if m != wantM {
				return nil, fmt.Errorf("%w: shape %d M-index %d: got M=%d, want %d (m_step*(i+1))",
					ErrArtifactParse, shapeIdx, mIdx, m, wantM)
			}
			for p := 0; p < nProfiles; p++ {
				var e StagesTime
				for s := 0; s < numStages; s++ {
					v, err := tr.nextInt()
					if err != nil {
						return nil, err
					}
					if layout[p][s].Concurrency == Absent && v != 0 {
						return nil, fmt.Errorf("%w: shape %d M-index %d profile %d stage %d is Absent but stages_time=%d",
							ErrArtifactParse, shapeIdx, mIdx, p, s, v)
					}
					e[s] = int32(v)
				}
				entries[EntryIndex(shapeIdx, mIdx, p, mNum, nProfiles)] = e
			}
		}
	}
	if tr.sc.Scan() {
		return nil, fmt.Errorf("%w: unexpected token %q after the %d shapes declared in the header",
			ErrArtifactParse, tr.sc.Text(), nShapes)
	}

	a := &Artifact{
		Version:       version,
		ModelTag:      model,
		QTypeTag:      qType,
		GPUBackend:    Backend(backendID),
		GPUTag:        decodeGPUTag(gpuTag),
		MStep:         mStep,
		MNum:          mNum,
		Shapes:        shapes,
		ProfileLayout: layout,
		Entries:       entries,
	}
	if err := ValidateInvariants(a); err != nil {
		return nil, err
	}
	return a, nil
}
