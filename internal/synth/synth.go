// Package synth writes synthetic BraTS-style trees: a label table plus one
// directory of MR slices per subject and series type.
package synth

import (
	"encoding/csv"
	"fmt"
	"hash/fnv"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"sync"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/frame"
	"github.com/suyashkumar/dicom/pkg/tag"

	"github.com/mrsinham/dicomharvest/internal/enumerate"
	"github.com/mrsinham/dicomharvest/internal/labels"
	"github.com/mrsinham/dicomharvest/internal/orientation"
)

// Transfer syntaxes written by the generator.
const (
	explicitVRLittleEndian = "1.2.840.10008.1.2.1"
	implicitVRLittleEndian = "1.2.840.10008.1.2"
)

const (
	implementationVersion = "DICOMHARVEST"
	labelsFile            = "train_labels.csv"
	trainDir              = "train"
)

// OptionalTags lists the tags that OmitRandom may drop from a file.
var OptionalTags = []string{
	"AccessionNumber",
	"SeriesDescription",
	"SliceLocation",
	"SpacingBetweenSlices",
	"MagneticFieldStrength",
	"PixelSpacing",
	"WindowCenter",
	"WindowWidth",
	"ImagePositionPatient",
	"ImageOrientationPatient",
}

// Options describes the tree to generate.
type Options struct {
	OutputDir string
	// Subjects are the raw numeric ids written to the label table.
	Subjects []int
	IDWidth  int
	// SeriesTypes default to FLAIR, T1wCE, T1w and T2w.
	SeriesTypes []string
	// Images is the number of slices per series (default 1). Counts overrides
	// it per "<key>/<series>", a zero count leaving the directory out.
	Images int
	Counts map[string]int
	// Width and Height of every slice, 64 by default.
	Width  int
	Height int
	// Seed makes the tree reproducible. Zero derives it from OutputDir.
	Seed    int64
	Workers int

	// Orientation selects the plane written per series type; Axial otherwise.
	Orientation map[string]orientation.Plane
	// OmitTags are removed from every file; OmitRandom drops that many
	// OptionalTags per file, chosen at random.
	OmitTags   []string
	OmitRandom int
	// Malformed patches element lengths after writing so that readers stop
	// part way through the dataset.
	Malformed bool
	// VendorPrivate adds a Siemens CSA private block to every file.
	VendorPrivate bool
	// Implicit writes implicit VR little endian instead of explicit.
	Implicit bool
	// NoHeader strips the preamble and file-meta group. The bare dataset keeps
	// the encoding chosen by Implicit.
	NoHeader bool

	ProgressCallback func(current, total int)
}

// GeneratedFile describes one written slice.
type GeneratedFile struct {
	Path           string
	Subject        labels.Subject
	Series         string
	InstanceNumber int
	Plane          orientation.Plane
	StudyUID       string
	SeriesUID      string
	SOPInstanceUID string
}

// sliceTask contains everything needed to write one file.
type sliceTask struct {
	index     int
	file      GeneratedFile
	width     int
	height    int
	metadata  []*dicom.Element
	pixelSeed uint64
	overlay   string
	writeOpts []dicom.WriteOption
	malformed bool
	noHeader  bool
}

func (o *Options) setDefaults() {
	if o.IDWidth <= 0 {
		o.IDWidth = labels.DefaultWidth
	}
	if len(o.SeriesTypes) == 0 {
		o.SeriesTypes = enumerate.DefaultSeriesTypes
	}
	if o.Images <= 0 {
		o.Images = 1
	}
	if o.Width <= 0 {
		o.Width = 64
	}
	if o.Height <= 0 {
		o.Height = 64
	}
	if o.Seed == 0 {
		h := fnv.New64a()
		_, _ = h.Write([]byte(o.OutputDir))
		o.Seed = int64(h.Sum64())
	}
}

func (o Options) validate() error {
	if o.OutputDir == "" {
		return fmt.Errorf("output directory is required")
	}
	if len(o.Subjects) == 0 {
		return fmt.Errorf("at least one subject is required")
	}
	for _, id := range o.Subjects {
		if id < 0 {
			return fmt.Errorf("subject id %d is negative", id)
		}
	}
	if o.Malformed && o.Implicit {
		return fmt.Errorf("malformed lengths require explicit VR files")
	}
	if o.VendorPrivate && o.Implicit {
		return fmt.Errorf("vendor private tags require explicit VR files")
	}
	if o.OmitRandom < 0 || o.OmitRandom > len(OptionalTags) {
		return fmt.Errorf("omit-random must be between 0 and %d, got %d", len(OptionalTags), o.OmitRandom)
	}
	for _, name := range o.OmitTags {
		info, err := tag.FindByName(name)
		if err != nil {
			return fmt.Errorf("omit tag %q: %w", name, err)
		}
		if info.Tag.Group == 0x0002 {
			return fmt.Errorf("omit tag %q: file meta elements cannot be omitted", name)
		}
	}
	return nil
}

// Generate writes the label table and every slice, returning the files in
// subject, series and instance order.
func Generate(opts Options) ([]GeneratedFile, error) {
	opts.setDefaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewPCG(uint64(opts.Seed), uint64(opts.Seed)))

	subjects := make([]labels.Subject, len(opts.Subjects))
	for i, id := range opts.Subjects {
		subjects[i] = labels.Subject{
			ID:     id,
			Key:    labels.Key(id, opts.IDWidth),
			Labels: map[string]string{"MGMT_value": strconv.Itoa(rng.IntN(2))},
		}
	}
	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	if err := writeLabels(filepath.Join(opts.OutputDir, labelsFile), subjects); err != nil {
		return nil, err
	}

	omit := make(map[tag.Tag]bool)
	for _, name := range opts.OmitTags {
		info, _ := tag.FindByName(name)
		omit[info.Tag] = true
	}

	// Phase 1: build every task sequentially so the tree is reproducible.
	var tasks []sliceTask
	for _, s := range subjects {
		studyUID := deterministicUID(fmt.Sprintf("%s_study_%s", opts.OutputDir, s.Key))
		frameUID := deterministicUID(fmt.Sprintf("%s_study_%s_frame", opts.OutputDir, s.Key))
		sc := scanners[rng.IntN(len(scanners))]
		accession := fmt.Sprintf("ACC%08d", rng.IntN(90000000)+10000000)

		for seriesIdx, series := range opts.SeriesTypes {
			count := opts.Images
			if c, ok := opts.Counts[s.Key+"/"+series]; ok {
				count = c
			}
			if count <= 0 {
				continue
			}

			dir := filepath.Join(opts.OutputDir, trainDir, s.Key, series)
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create series directory: %w", err)
			}

			seriesUID := deterministicUID(fmt.Sprintf("%s_study_%s_series_%s", opts.OutputDir, s.Key, series))
			params := newSeriesParams(sc, series, rng)
			plane := orientation.Axial
			if p, ok := opts.Orientation[series]; ok {
				plane = p
			}

			for n := 1; n <= count; n++ {
				sopUID := deterministicUID(fmt.Sprintf("%s_study_%s_series_%s_instance_%d", opts.OutputDir, s.Key, series, n))
				file := GeneratedFile{
					Path:           filepath.Join(dir, fmt.Sprintf("Image-%d.dcm", n)),
					Subject:        s,
					Series:         series,
					InstanceNumber: n,
					Plane:          plane,
					StudyUID:       studyUID,
					SeriesUID:      seriesUID,
					SOPInstanceUID: sopUID,
				}

				metadata := sliceElements(opts, file, params, seriesIdx+1, frameUID, accession)
				dropped := make(map[tag.Tag]bool, len(omit))
				for t := range omit {
					dropped[t] = true
				}
				for _, name := range selectTagsToOmit(rng, opts.OmitRandom) {
					info, _ := tag.FindByName(name)
					dropped[info.Tag] = true
				}
				metadata = withoutTags(metadata, dropped)

				var writeOpts []dicom.WriteOption
				if opts.VendorPrivate {
					metadata = append(metadata, vendorPrivateElements(params, rng)...)
				}
				if opts.Malformed {
					metadata = append(metadata, malformedPlaceholder())
				}
				if opts.VendorPrivate || opts.Malformed {
					writeOpts = []dicom.WriteOption{dicom.SkipVRVerification(), dicom.SkipValueTypeVerification()}
				}
				sort.Slice(metadata, func(i, j int) bool {
					if metadata[i].Tag.Group != metadata[j].Tag.Group {
						return metadata[i].Tag.Group < metadata[j].Tag.Group
					}
					return metadata[i].Tag.Element < metadata[j].Tag.Element
				})

				h := fnv.New64a()
				_, _ = fmt.Fprintf(h, "%d_pixel_%d", opts.Seed, len(tasks))

				tasks = append(tasks, sliceTask{
					index:     len(tasks),
					file:      file,
					width:     opts.Width,
					height:    opts.Height,
					metadata:  metadata,
					pixelSeed: h.Sum64(),
					overlay:   fmt.Sprintf("%s %s %d", s.Key, series, n),
					writeOpts: writeOpts,
					malformed: opts.Malformed,
					noHeader:  opts.NoHeader,
				})
			}
		}
	}

	// Phase 2: write in parallel.
	if err := runTasks(tasks, opts.Workers, opts.ProgressCallback); err != nil {
		return nil, err
	}

	files := make([]GeneratedFile, len(tasks))
	for i, t := range tasks {
		files[i] = t.file
	}
	return files, nil
}

func runTasks(tasks []sliceTask, workers int, progress func(current, total int)) error {
	if len(tasks) == 0 {
		return nil
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(tasks) {
		workers = len(tasks)
	}

	type result struct {
		index int
		err   error
	}
	taskChan := make(chan sliceTask, len(tasks))
	resultChan := make(chan result, len(tasks))

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range taskChan {
				resultChan <- result{task.index, writeSlice(task)}
			}
		}()
	}

	for _, task := range tasks {
		taskChan <- task
	}
	close(taskChan)

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	completed := 0
	var firstErr error
	for r := range resultChan {
		if r.err != nil && firstErr == nil {
			firstErr = fmt.Errorf("write %s: %w", tasks[r.index].file.Path, r.err)
		}
		completed++
		if progress != nil {
			progress(completed, len(tasks))
		}
	}
	return firstErr
}

func sliceElements(opts Options, file GeneratedFile, p seriesParams, seriesNumber int, frameUID, accession string) []*dicom.Element {
	ts := explicitVRLittleEndian
	if opts.Implicit {
		ts = implicitVRLittleEndian
	}

	iop := orientationVector(file.Plane)
	iopStrs := make([]string, len(iop))
	for i, v := range iop {
		iopStrs[i] = floatToDS(v)
	}
	z := -100.0 + float64(file.InstanceNumber-1)*p.SpacingBetweenSlices
	ipp := []string{floatToDS(-120), floatToDS(-120), floatToDS(z)}
	spacing := floatToDS(p.PixelSpacing)
	pixelBandwidth := floatToDS(p.PixelBandwidth)

	elements := []*dicom.Element{
		mustNewElement(tag.MediaStorageSOPClassUID, []string{mrImageStorage}),
		mustNewElement(tag.MediaStorageSOPInstanceUID, []string{file.SOPInstanceUID}),
		mustNewElement(tag.TransferSyntaxUID, []string{ts}),
		mustNewElement(tag.ImplementationClassUID, []string{deterministicUID("dicomharvest implementation")}),
		mustNewElement(tag.ImplementationVersionName, []string{implementationVersion}),

		mustNewElement(tag.SpecificCharacterSet, []string{"ISO_IR 100"}),
		mustNewElement(tag.ImageType, []string{"ORIGINAL", "PRIMARY", "M", "ND"}),
		mustNewElement(tag.SOPClassUID, []string{mrImageStorage}),
		mustNewElement(tag.SOPInstanceUID, []string{file.SOPInstanceUID}),
		mustNewElement(tag.AccessionNumber, []string{accession}),
		mustNewElement(tag.Modality, []string{"MR"}),
		mustNewElement(tag.Manufacturer, []string{p.Scanner.Manufacturer}),
		mustNewElement(tag.ManufacturerModelName, []string{p.Scanner.Model}),
		mustNewElement(tag.SeriesDescription, []string{file.Series}),
		mustNewElement(tag.PatientName, []string{file.Subject.Key}),
		mustNewElement(tag.PatientID, []string{file.Subject.Key}),
		mustNewElement(tag.MRAcquisitionType, []string{"2D"}),
		mustNewElement(tag.SliceThickness, []string{floatToDS(p.SliceThickness)}),
		mustNewElement(tag.RepetitionTime, []string{floatToDS(p.Sequence.RepetitionTime)}),
		mustNewElement(tag.EchoTime, []string{floatToDS(p.Sequence.EchoTime)}),
		mustNewElement(tag.NumberOfAverages, []string{"1"}),
		mustNewElement(tag.ImagingFrequency, []string{floatToDS(p.ImagingFrequency)}),
		mustNewElement(tag.EchoNumbers, []string{"1"}),
		mustNewElement(tag.MagneticFieldStrength, []string{floatToDS(p.Scanner.FieldStrength)}),
		mustNewElement(tag.SpacingBetweenSlices, []string{floatToDS(p.SpacingBetweenSlices)}),
		mustNewElement(tag.NumberOfPhaseEncodingSteps, []string{strconv.Itoa(opts.Height)}),
		mustNewElement(tag.EchoTrainLength, []string{strconv.Itoa(p.Sequence.EchoTrain)}),
		mustNewElement(tag.PercentSampling, []string{"100"}),
		mustNewElement(tag.PercentPhaseFieldOfView, []string{"100"}),
		mustNewElement(tag.PixelBandwidth, []string{pixelBandwidth}),
		mustNewElement(tag.ReconstructionDiameter, []string{floatToDS(p.PixelSpacing * float64(opts.Width))}),
		mustNewElement(tag.AcquisitionMatrix, []int{0, opts.Width, opts.Height, 0}),
		mustNewElement(tag.InPlanePhaseEncodingDirection, []string{"ROW"}),
		mustNewElement(tag.FlipAngle, []string{floatToDS(p.Sequence.FlipAngle)}),
		mustNewElement(tag.SAR, []string{floatToDS(p.SAR)}),
		mustNewElement(tag.PatientPosition, []string{"HFS"}),
		mustNewElement(tag.StudyInstanceUID, []string{file.StudyUID}),
		mustNewElement(tag.SeriesInstanceUID, []string{file.SeriesUID}),
		mustNewElement(tag.SeriesNumber, []string{strconv.Itoa(seriesNumber)}),
		mustNewElement(tag.InstanceNumber, []string{strconv.Itoa(file.InstanceNumber)}),
		mustNewElement(tag.ImagePositionPatient, ipp),
		mustNewElement(tag.ImageOrientationPatient, iopStrs),
		mustNewElement(tag.FrameOfReferenceUID, []string{frameUID}),
		mustNewElement(tag.SliceLocation, []string{floatToDS(z)}),
		mustNewElement(tag.InStackPositionNumber, []int{file.InstanceNumber}),
		mustNewElement(tag.SamplesPerPixel, []int{1}),
		mustNewElement(tag.PhotometricInterpretation, []string{"MONOCHROME2"}),
		mustNewElement(tag.Rows, []int{opts.Height}),
		mustNewElement(tag.Columns, []int{opts.Width}),
		mustNewElement(tag.PixelSpacing, []string{spacing, spacing}),
		mustNewElement(tag.BitsAllocated, []int{16}),
		mustNewElement(tag.BitsStored, []int{12}),
		mustNewElement(tag.HighBit, []int{11}),
		mustNewElement(tag.PixelRepresentation, []int{0}),
		mustNewElement(tag.WindowCenter, []string{floatToDS(p.WindowCenter)}),
		mustNewElement(tag.WindowWidth, []string{floatToDS(p.WindowWidth)}),
		mustNewElement(tag.RescaleIntercept, []string{"0"}),
		mustNewElement(tag.RescaleSlope, []string{"1"}),
		mustNewElement(tag.PresentationLUTShape, []string{"IDENTITY"}),
	}
	if p.Sequence.Contrast {
		elements = append(elements, mustNewElement(tag.ContrastBolusAgent, []string{"GADOLINIUM"}))
	}
	return elements
}

// writeSlice renders the pixels of one task and writes the file.
func writeSlice(task sliceTask) error {
	width, height := task.width, task.height
	rng := rand.New(rand.NewPCG(task.pixelSeed, task.pixelSeed))

	const maxValue = 4095
	nativeFrame := frame.NewNativeFrame[uint16](16, height, width, width*height, 1)
	cx, cy := float64(width)/2, float64(height)/2
	maxDist := math.Hypot(cx, cy)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			dist := math.Hypot(float64(x)-cx, float64(y)-cy) / maxDist
			v := 1024 + (1-dist)*maxValue*0.4 + (rng.Float64()-0.5)*maxValue*0.2
			nativeFrame.RawData[y*width+x] = uint16(math.Max(0, math.Min(maxValue, v)))
		}
	}
	drawLabel(nativeFrame, width, height, task.overlay, maxValue)

	pixelData := dicom.PixelDataInfo{
		Frames: []*frame.Frame{{Encapsulated: false, NativeData: nativeFrame}},
	}
	elements := append(append([]*dicom.Element(nil), task.metadata...), mustNewElement(tag.PixelData, pixelData))

	if err := writeDataset(task.file.Path, dicom.Dataset{Elements: elements}, task.writeOpts...); err != nil {
		return err
	}
	if task.malformed {
		if err := patchMalformedLengths(task.file.Path); err != nil {
			return fmt.Errorf("patch malformed lengths: %w", err)
		}
	}
	if task.noHeader {
		if err := stripHeader(task.file.Path); err != nil {
			return fmt.Errorf("strip header: %w", err)
		}
	}
	return nil
}

func writeDataset(path string, ds dicom.Dataset, opts ...dicom.WriteOption) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := dicom.Write(f, ds, opts...); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func writeLabels(path string, subjects []labels.Subject) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create label table: %w", err)
	}
	w := csv.NewWriter(f)
	_ = w.Write([]string{labels.DefaultIDColumn, "MGMT_value"})
	for _, s := range subjects {
		_ = w.Write([]string{strconv.Itoa(s.ID), s.Labels["MGMT_value"]})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = f.Close()
		return fmt.Errorf("write label table: %w", err)
	}
	return f.Close()
}

// selectTagsToOmit picks count distinct OptionalTags.
func selectTagsToOmit(rng *rand.Rand, count int) []string {
	if count <= 0 {
		return nil
	}
	if count >= len(OptionalTags) {
		return OptionalTags
	}
	indices := rng.Perm(len(OptionalTags))
	out := make([]string, count)
	for i := range out {
		out[i] = OptionalTags[indices[i]]
	}
	return out
}

func withoutTags(elements []*dicom.Element, drop map[tag.Tag]bool) []*dicom.Element {
	if len(drop) == 0 {
		return elements
	}
	out := elements[:0]
	for _, e := range elements {
		if !drop[e.Tag] {
			out = append(out, e)
		}
	}
	return out
}

// mustNewElement creates a new DICOM element, panicking on error.
func mustNewElement(t tag.Tag, value any) *dicom.Element {
	elem, err := dicom.NewElement(t, value)
	if err != nil {
		panic(fmt.Sprintf("failed to create element %v: %v", t, err))
	}
	return elem
}
