package mockbackend

import (
	"fmt"
	"math"
	"strings"

	"github.com/go-go-golems/infravoice/pkg/services"
)

const cannedTranscript = "Create a web server with a PostgreSQL database and an S3 bucket for static assets"

type template struct {
	resources []string
	main      string
}

var templates = map[services.CloudProvider]template{
	services.ProviderAWS: {
		resources: []string{"aws_instance.web", "aws_db_instance.main", "aws_s3_bucket.assets"},
		main: `provider "aws" {
  region = var.region
}

resource "aws_instance" "web" {
  ami           = "ami-0c55b159cbfafe1f0"
  instance_type = var.instance_type
}

resource "aws_db_instance" "main" {
  engine            = "postgres"
  instance_class    = "db.t3.micro"
  allocated_storage = 20
}

resource "aws_s3_bucket" "assets" {
  bucket = "${var.project}-assets"
}
`,
	},
	services.ProviderGCP: {
		resources: []string{"google_compute_instance.web", "google_sql_database_instance.main", "google_storage_bucket.assets"},
		main: `provider "google" {
  region = var.region
}

resource "google_compute_instance" "web" {
  name         = "${var.project}-web"
  machine_type = var.instance_type
}

resource "google_sql_database_instance" "main" {
  database_version = "POSTGRES_15"
}

resource "google_storage_bucket" "assets" {
  name     = "${var.project}-assets"
  location = var.region
}
`,
	},
	services.ProviderAzure: {
		resources: []string{"azurerm_linux_virtual_machine.web", "azurerm_postgresql_flexible_server.main", "azurerm_storage_account.assets"},
		main: `provider "azurerm" {
  features {}
}

resource "azurerm_linux_virtual_machine" "web" {
  name     = "${var.project}-web"
  location = var.region
  size     = var.instance_type
}

resource "azurerm_postgresql_flexible_server" "main" {
  name     = "${var.project}-db"
  location = var.region
}

resource "azurerm_storage_account" "assets" {
  name     = "${var.project}assets"
  location = var.region
}
`,
	},
}

func variablesTF(region string) string {
	return fmt.Sprintf(`variable "region" {
  type    = string
  default = %q
}

variable "project" {
  type    = string
  default = "infravoice"
}

variable "instance_type" {
  type    = string
  default = "t3.micro"
}
`, region)
}

const outputsTF = `output "project" {
  value = var.project
}
`

// resourceTypes pulls `resource "<type>" "<name>"` headers out of code.
func resourceTypes(code string) [][2]string {
	var out [][2]string
	for _, line := range strings.Split(code, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "resource ") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 3 {
			continue
		}
		out = append(out, [2]string{strings.Trim(fields[1], `"`), strings.Trim(fields[2], `"`)})
	}
	return out
}

var monthlyByKeyword = []struct {
	keyword  string
	category string
	cost     float64
}{
	{"db", "database", 15.33},
	{"sql", "database", 25.55},
	{"postgres", "database", 21.90},
	{"instance", "compute", 7.59},
	{"virtual_machine", "compute", 8.76},
	{"bucket", "storage", 2.30},
	{"storage", "storage", 2.08},
}

func priceResource(typ string) (string, float64) {
	for _, k := range monthlyByKeyword {
		if strings.Contains(typ, k.keyword) {
			return k.category, k.cost
		}
	}
	return "other", 1.00
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }

// scanIssues flags the usual suspects so scores vary with the code.
func scanIssues(code string) []services.SecurityIssue {
	var issues []services.SecurityIssue
	for _, rt := range resourceTypes(code) {
		typ, name := rt[0], rt[1]
		switch {
		case strings.Contains(typ, "bucket") && !strings.Contains(code, "versioning"):
			issues = append(issues, services.SecurityIssue{
				CheckID:     "CKV_AWS_21",
				Severity:    "medium",
				Title:       "Bucket versioning is disabled",
				Description: "Enable versioning to protect against accidental deletion.",
				Resource:    typ + "." + name,
				FilePath:    "main.tf",
			})
		case strings.Contains(typ, "db") || strings.Contains(typ, "sql") || strings.Contains(typ, "postgres"):
			if !strings.Contains(code, "storage_encrypted") {
				issues = append(issues, services.SecurityIssue{
					CheckID:     "CKV_AWS_16",
					Severity:    "high",
					Title:       "Database storage is not encrypted",
					Description: "Set storage encryption on database instances.",
					Resource:    typ + "." + name,
					FilePath:    "main.tf",
				})
			}
		}
	}
	return issues
}
