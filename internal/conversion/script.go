// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package conversion renders the PowerShell script run on the
// conversion host to turn a source machine disk into a VHD and upload
// it to the target storage account.
package conversion

import (
	"bytes"
	"strings"
	"text/template"

	"github.com/juju/errors"

	"github.com/juju/vmmigrate/core/migration"
)

// DefaultModulePath is the install location of the Microsoft Virtual
// Machine Converter cmdlets.
const DefaultModulePath = `C:\Program Files\Microsoft Virtual Machine Converter\MvmcCmdlet.psd1`

// redactedValue replaces secrets in a redacted script.
const redactedValue = "********"

// convertedDiskName is the file name the converter gives the first
// disk of the source machine.
const convertedDiskName = "disk-0.vhd"

// Builder renders conversion scripts. The zero value is ready to use.
type Builder struct {
	// ModulePath overrides DefaultModulePath when set.
	ModulePath string
}

// NewBuilder returns a Builder using the default converter module.
func NewBuilder() *Builder {
	return &Builder{}
}

// Build returns the conversion script for the request. The same request
// always renders the same script.
func (b *Builder) Build(req migration.Request) (string, error) {
	return b.render(req, false)
}

// Redacted returns the conversion script for the request with secrets
// masked, suitable for display.
func (b *Builder) Redacted(req migration.Request) (string, error) {
	return b.render(req, true)
}

type scriptParams struct {
	ModulePath       string
	VMName           string
	SourceServer     string
	SourceUser       string
	SourcePassword   string
	OutputPath       string
	AzureProfilePath string
	Destination      string
	ResourceGroup    string
}

func (b *Builder) render(req migration.Request, redact bool) (string, error) {
	req = req.WithDefaults()
	if err := req.Validate(); err != nil {
		return "", errors.Trace(err)
	}
	modulePath := b.ModulePath
	if modulePath == "" {
		modulePath = DefaultModulePath
	}
	params := scriptParams{
		ModulePath:       modulePath,
		VMName:           req.VMName,
		SourceServer:     req.Source.Server,
		SourceUser:       req.Source.User,
		SourcePassword:   req.Source.Password,
		OutputPath:       req.ConversionHost.OutputPath,
		AzureProfilePath: req.ConversionHost.AzureProfilePath,
		Destination:      migration.BlobURI(req.StorageAccount, req.StorageContainer, req.VMName),
		ResourceGroup:    req.ResourceGroup,
	}
	if err := checkLiterals(params); err != nil {
		return "", errors.Trace(err)
	}
	if redact {
		params.SourcePassword = redactedValue
	}

	var buf bytes.Buffer
	if err := scriptTemplate.Execute(&buf, params); err != nil {
		return "", errors.Annotate(err, "rendering conversion script")
	}
	return buf.String(), nil
}

// checkLiterals rejects values that cannot be carried safely inside a
// single-quoted PowerShell literal.
func checkLiterals(p scriptParams) error {
	for _, field := range []struct {
		name  string
		value string
	}{
		{"ModulePath", p.ModulePath},
		{"VMName", p.VMName},
		{"Source.Server", p.SourceServer},
		{"Source.User", p.SourceUser},
		{"Source.Password", p.SourcePassword},
		{"ConversionHost.OutputPath", p.OutputPath},
		{"ConversionHost.AzureProfilePath", p.AzureProfilePath},
		{"StorageAccount", p.Destination},
		{"ResourceGroup", p.ResourceGroup},
	} {
		if strings.ContainsAny(field.value, "\x00\r\n") {
			return errors.NotValidf("%s containing control characters", field.name)
		}
	}
	return nil
}

// PowerShell treats the typographic single quotes as quote characters
// too, so they are doubled like the ASCII one.
var singleQuoteEscaper = strings.NewReplacer(
	"'", "''",
	"\u2018", "\u2018\u2018",
	"\u2019", "\u2019\u2019",
	"\u201a", "\u201a\u201a",
	"\u201b", "\u201b\u201b",
)

// Quote returns s as a single-quoted PowerShell string literal. Nothing
// inside a single-quoted literal is expanded.
func Quote(s string) string {
	return "'" + singleQuoteEscaper.Replace(s) + "'"
}

var scriptTemplate = template.Must(template.New("conversion").
	Funcs(template.FuncMap{"quote": Quote}).
	Parse(scriptText))

const scriptText = `$ProgressPreference = 'SilentlyContinue'
Import-Module {{quote .ModulePath}}

$vmName = {{quote .VMName}}
$sourceUser = {{quote .SourceUser}}
$sourcePassword = ConvertTo-SecureString {{quote .SourcePassword}} -AsPlainText -Force
$sourceCredential = New-Object System.Management.Automation.PSCredential ($sourceUser, $sourcePassword)
$sourceConnection = New-MvmcSourceConnection -Server {{quote .SourceServer}} -SourceCredential $sourceCredential

$sourceVM = Get-MvmcSourceVirtualMachine -SourceConnection $sourceConnection |
    Where-Object { $_.Name -eq $vmName } |
    Select-Object -First 1
if (-not $sourceVM) {
    Write-Error "source machine $vmName not found"
    exit 1
}

$destinationLiteralPath = {{quote .OutputPath}}
ConvertTo-MvmcVirtualHardDiskOvf -SourceConnection $sourceConnection -DestinationLiteralPath $destinationLiteralPath -GuestVmId $sourceVM.GuestVmId -VhdFormat Vhd | Out-Null

Select-AzureRmProfile -Path {{quote .AzureProfilePath}} | Out-Null
$localFilePath = Join-Path $destinationLiteralPath '` + convertedDiskName + `'
Add-AzureRmVhd -Destination {{quote .Destination}} -LocalFilePath $localFilePath -ResourceGroupName {{quote .ResourceGroup}}
`
