// Copyright (c) 2026 bnrobert
// Gobro - clinical research data workbench
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/bnrobert/gobro/internal/db"
	"github.com/bnrobert/gobro/internal/dicom"
	"github.com/bnrobert/gobro/internal/fsutil"
	"github.com/bnrobert/gobro/internal/index"
	"github.com/bnrobert/gobro/internal/model"
)

// dicomCmd is the root command for DICOM operations.
var dicomCmd = &cobra.Command{
	Use:   "dicom",
	Short: "Work with DICOM files (info, anonymize, index, list, prune)",
	Long: `The 'dicom' command group covers the DICOM side of the workbench:
  - Inspect the header attributes of a single file
  - Anonymize a file or a whole directory tree
  - Index directories into the searchable catalog
  - List and search the catalog
  - Prune catalog rows whose files vanished`,
}

// dicomInfoCmd prints the header attributes of one DICOM file.
var dicomInfoCmd = &cobra.Command{
	Use:     "info <file>",
	Short:   "Show the header attributes of a DICOM file",
	Long:    `Parse a DICOM file (header only, pixel data is skipped) and print the attributes Gobro catalogs.`,
	Args:    cobra.ExactArgs(1),
	PreRunE: setupDefaultServices,
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := dicom.OpenHeader(args[0])
		if err != nil {
			return fmt.Errorf("failed to read DICOM file: %w", err)
		}
		info := f.Info()

		fmt.Printf("Path:                   %s\n", f.Path)
		fmt.Printf("Modality:               %s\n", info.Modality)
		fmt.Printf("Image Type:             %s\n", info.ImageType)
		fmt.Printf("Station Name:           %s\n", info.StationName)
		fmt.Printf("Patient Name:           %s\n", info.PatientName)
		fmt.Printf("Patient ID:             %s\n", info.PatientID)
		fmt.Printf("Patient Birth Date:     %s\n", info.PatientBirthDate)
		fmt.Printf("Accession Number:       %s\n", info.AccessionNumber)
		fmt.Printf("Study ID:               %s\n", info.StudyID)
		fmt.Printf("Study Date:             %s\n", info.StudyDate)
		fmt.Printf("Series Date:            %s\n", info.SeriesDate)
		fmt.Printf("Acquisition Date:       %s\n", info.AcquisitionDate)
		fmt.Printf("Content Date:           %s\n", info.ContentDate)
		fmt.Printf("Instance Creation Date: %s\n", info.InstanceCreationDate)
		fmt.Printf("Series Instance UID:    %s\n", info.SeriesInstanceUID)
		fmt.Printf("Instance Number:        %s\n", info.InstanceNumber)

		return nil
	},
}

// dicomAnonymizeCmd anonymizes a single file or a directory tree.
var dicomAnonymizeCmd = &cobra.Command{
	Use:   "anonymize <file|dir>",
	Short: "Anonymize a DICOM file or directory tree",
	Long: `Anonymize a single DICOM file or every DICOM file under a directory.

A single file is written beside the source with an '_anonymized' suffix
unless --out names a directory. A directory run mirrors the anonymized
study layout (patient/accession/series) under '<dir>/anonymized' by
default and skips previously anonymized outputs.`,
	Args:    cobra.ExactArgs(1),
	PreRunE: setupDefaultServices,
	RunE: func(cmd *cobra.Command, args []string) error {
		target := args[0]
		outDir, _ := cmd.Flags().GetString("out")
		workers, _ := cmd.Flags().GetInt("workers")
		station, _ := cmd.Flags().GetString("station")

		if workers <= 0 {
			workers = appConfig.Anonymize.Workers
		}
		if station == "" {
			station = appConfig.Anonymize.Station
		}

		if fsutil.CheckDir(target) {
			if outDir == "" {
				outDir = filepath.Join(target, appConfig.Anonymize.OutputDir)
			}
			res, err := dicom.AnonymizeDir(cmd.Context(), target, dicom.BatchOptions{
				Workers: workers,
				Station: station,
				OutDir:  outDir,
				Progress: func(done, total int, path string, perr error) {
					if perr != nil {
						fmt.Printf("failed: %s: %v\n", path, perr)
					}
				},
			})
			if err != nil {
				return fmt.Errorf("anonymization run failed: %w", err)
			}
			_ = db.LogAction("ANONYMIZE_DICOM", fmt.Sprintf("%s: %d/%d into %s", target, res.Succeeded, res.Total, outDir))
			fmt.Printf("Anonymized %d of %d files into %s (%d failed)\n", res.Succeeded, res.Total, outDir, res.Failed)
			return nil
		}

		if outDir != "" {
			if err := fsutil.EnsureDir(outDir); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}
		dst, err := dicom.AnonymizeFile(target, outDir, station)
		if err != nil {
			return fmt.Errorf("failed to anonymize %s: %w", target, err)
		}
		_ = db.LogAction("ANONYMIZE_DICOM", fmt.Sprintf("%s: 1/1 into %s", target, dst))
		fmt.Printf("Anonymized file written to %s\n", dst)
		return nil
	},
}

// dicomIndexCmd scans a directory into the catalog.
var dicomIndexCmd = &cobra.Command{
	Use:   "index <dir>",
	Short: "Scan a directory into the DICOM catalog",
	Long: `Recursively scan a directory, read the header of every file and upsert the
readable DICOM files into the catalog. Files that are not DICOM are counted
and skipped.`,
	Args:    cobra.ExactArgs(1),
	PreRunE: setupDefaultServices,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := args[0]
		res, err := index.Scan(cmd.Context(), db.Current(), dir, 0, nil)
		if err != nil {
			return fmt.Errorf("failed to index %s: %w", dir, err)
		}
		_ = db.LogAction("INDEX_DICOM", fmt.Sprintf("%s: %d/%d", dir, res.Indexed, res.Total))
		fmt.Printf("Indexed %d DICOM files out of %d scanned (%d skipped or unreadable).\n", res.Indexed, res.Total, res.Failed)
		return nil
	},
}

// dicomListCmd lists catalog rows with optional filtering.
var dicomListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the DICOM catalog",
	Long: `Display the cataloged DICOM files in table format.
You can filter by modality or search across patient, station, accession and path.`,
	PreRunE: setupDefaultServices,
	RunE: func(cmd *cobra.Command, args []string) error {
		modality, _ := cmd.Flags().GetString("modality")
		searchTerm, _ := cmd.Flags().GetString("search")

		var files []model.DicomFile
		var err error
		if modality != "" {
			files, err = db.GetDicomFilesByModality(modality)
		} else {
			files, err = db.GetAllDicomFiles()
		}
		if err != nil {
			return fmt.Errorf("failed to list catalog: %w", err)
		}

		if searchTerm != "" {
			files = db.FilterDicomFilesByTokens(files, db.TokenizeSearchQuery(searchTerm))
		}

		if len(files) == 0 {
			fmt.Println("No cataloged DICOM files found.")
			return nil
		}

		// Display as table
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tPATIENT\tMODALITY\tSTUDY_DATE\tSTATION\tPATH")
		for _, f := range files {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
				f.ID, f.PatientID, f.Modality, f.StudyDate, f.StationName, f.Path)
		}
		w.Flush()

		return nil
	},
}

// dicomPruneCmd drops catalog rows whose files no longer exist.
var dicomPruneCmd = &cobra.Command{
	Use:     "prune",
	Short:   "Remove catalog entries whose files vanished",
	Long:    `Check every cataloged path on disk and delete the rows whose files no longer exist.`,
	PreRunE: setupDefaultServices,
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := index.Prune(db.Current())
		if err != nil {
			return fmt.Errorf("failed to prune catalog: %w", err)
		}
		if n > 0 {
			_ = db.LogAction("PRUNE_INDEX", fmt.Sprintf("%d entries", n))
		}
		fmt.Printf("Pruned %d stale entries from the catalog.\n", n)
		return nil
	},
}

func init() {
	dicomCmd.AddCommand(dicomInfoCmd)
	dicomCmd.AddCommand(dicomAnonymizeCmd)
	dicomCmd.AddCommand(dicomIndexCmd)
	dicomCmd.AddCommand(dicomListCmd)
	dicomCmd.AddCommand(dicomPruneCmd)

	dicomAnonymizeCmd.Flags().StringP("out", "o", "", "Output directory (defaults beside the source)")
	dicomAnonymizeCmd.Flags().Int("workers", 0, "Worker pool size for directory runs (0 means one per CPU)")
	dicomAnonymizeCmd.Flags().String("station", "", "Replacement station name (defaults to the uppercase hostname)")

	dicomListCmd.Flags().String("modality", "", "Filter by modality (e.g. CT, MR)")
	dicomListCmd.Flags().String("search", "", "Search patient, station, accession and path")
}
