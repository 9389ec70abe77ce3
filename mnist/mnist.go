// Package mnist downloads, caches, and parses the MNIST handwritten
// digit dataset in its original IDX format, exposing the four arrays
// the benchmark consumes: train/test images as dense matrices with one
// flattened example per row and pixels scaled to [0,1], plus integer
// label slices.
package mnist

import (
	"bufio"
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/mat"
)

const baseURL = "https://storage.googleapis.com/cvdf-datasets/mnist/"

const (
	imageMagic = 2051
	labelMagic = 2049
)

var files = []string{
	"train-images-idx3-ubyte",
	"train-labels-idx1-ubyte",
	"t10k-images-idx3-ubyte",
	"t10k-labels-idx1-ubyte",
}

// Dataset holds the parsed MNIST arrays.
type Dataset struct {
	TrainImages *mat.Dense
	TrainLabels []int
	TestImages  *mat.Dense
	TestLabels  []int
}

// Load returns the MNIST dataset from dir, downloading and unpacking
// any of the four IDX files that are not already cached there.
func Load(dir string) (*Dataset, error) {
	if err := ensureFiles(dir); err != nil {
		return nil, err
	}

	trainImages, err := parseImages(filepath.Join(dir, files[0]))
	if err != nil {
		return nil, err
	}

	trainLabels, err := parseLabels(filepath.Join(dir, files[1]))
	if err != nil {
		return nil, err
	}

	testImages, err := parseImages(filepath.Join(dir, files[2]))
	if err != nil {
		return nil, err
	}

	testLabels, err := parseLabels(filepath.Join(dir, files[3]))
	if err != nil {
		return nil, err
	}

	if n, _ := trainImages.Dims(); n != len(trainLabels) {
		return nil, fmt.Errorf(
			"mnist: %d train images but %d labels", n, len(trainLabels),
		)
	}

	if n, _ := testImages.Dims(); n != len(testLabels) {
		return nil, fmt.Errorf(
			"mnist: %d test images but %d labels", n, len(testLabels),
		)
	}

	return &Dataset{
		TrainImages: trainImages,
		TrainLabels: trainLabels,
		TestImages:  testImages,
		TestLabels:  testLabels,
	}, nil
}

func ensureFiles(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create data dir %s: %w", dir, err)
	}

	for _, name := range files {
		path := filepath.Join(dir, name)

		if _, err := os.Stat(path); err == nil {
			continue
		}

		if err := download(baseURL+name+".gz", path); err != nil {
			return fmt.Errorf("fetch %s: %w", name, err)
		}
	}

	return nil
}

// download fetches a gzipped IDX file and writes it decompressed.
func download(url, path string) error {
	resp, err := http.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: %s", url, resp.Status)
	}

	gz, err := gzip.NewReader(resp.Body)
	if err != nil {
		return fmt.Errorf("gunzip: %w", err)
	}
	defer gz.Close()

	out, err := os.Create(path)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, gz); err != nil {
		out.Close()
		os.Remove(path)

		return err
	}

	return out.Close()
}

func parseImages(path string) (*mat.Dense, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open images: %w", err)
	}
	defer f.Close()

	r := bufio.NewReader(f)

	var header [16]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, fmt.Errorf("read image header: %w", err)
	}

	if magic := binary.BigEndian.Uint32(header[0:4]); magic != imageMagic {
		return nil, fmt.Errorf(
			"%s: bad image magic %d, want %d", path, magic, imageMagic,
		)
	}

	count := int(binary.BigEndian.Uint32(header[4:8]))
	rows := int(binary.BigEndian.Uint32(header[8:12]))
	cols := int(binary.BigEndian.Uint32(header[12:16]))
	pixels := rows * cols

	data := make([]float64, count*pixels)
	buf := make([]byte, pixels)

	for i := 0; i < count; i++ {
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, fmt.Errorf("read image %d: %w", i, err)
		}

		for p, v := range buf {
			data[i*pixels+p] = float64(v) / 255
		}
	}

	return mat.NewDense(count, pixels, data), nil
}

func parseLabels(path string) ([]int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open labels: %w", err)
	}
	defer f.Close()

	r := bufio.NewReader(f)

	var header [8]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, fmt.Errorf("read label header: %w", err)
	}

	if magic := binary.BigEndian.Uint32(header[0:4]); magic != labelMagic {
		return nil, fmt.Errorf(
			"%s: bad label magic %d, want %d", path, magic, labelMagic,
		)
	}

	count := int(binary.BigEndian.Uint32(header[4:8]))

	raw := make([]byte, count)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, fmt.Errorf("read labels: %w", err)
	}

	labels := make([]int, count)
	for i, v := range raw {
		labels[i] = int(v)
	}

	return labels, nil
}
