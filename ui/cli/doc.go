// Copyright (c) 2026 bnrobert
// Gobro - clinical research data workbench
// This source code is licensed under the MIT license found in the LICENSE file.
//
// Package cli implements the command-line interface for Gobro using Cobra.
// It wires configuration, i18n and the database, and provides the dicom,
// pubmed, qr, push and maintenance command groups. CLI code should remain
// thin and delegate the work to the internal packages.
package cli
