package mockbackend

import (
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-go-golems/infravoice/pkg/api"
	"github.com/go-go-golems/infravoice/pkg/services"
	"github.com/google/uuid"
)

const maxUpload = 25 << 20

func (s *Server) now() api.Timestamp { return api.Timestamp{Time: s.opts.Now().UTC()} }

func (s *Server) transcribe(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUpload); err != nil {
		writeValidation(w, "file", "Field required")
		return
	}
	f, hdr, err := r.FormFile("file")
	if err != nil {
		writeValidation(w, "file", "Field required")
		return
	}
	defer func() { _ = f.Close() }()

	if !services.IsSupportedAudio(hdr.Filename) {
		writeDetail(w, http.StatusBadRequest, "Unsupported audio format. Supported formats: .mp3, .wav, .webm, .m4a")
		return
	}
	data, err := io.ReadAll(f)
	if err != nil || len(data) == 0 {
		writeDetail(w, http.StatusBadRequest, "Audio file is empty")
		return
	}

	t := services.Transcript{
		Transcript: cannedTranscript,
		Confidence: 0.95,
		Duration:   float64(len(data)) / 32000,
		Language:   "en",
	}
	s.mu.Lock()
	s.history = append([]services.TranscriptionRecord{{
		ID:         uuid.NewString(),
		Transcript: t.Transcript,
		Confidence: t.Confidence,
		Duration:   t.Duration,
		CreatedAt:  s.now(),
	}}, s.history...)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, t)
}

func pageParams(r *http.Request) (int, int) {
	skip, _ := strconv.Atoi(r.URL.Query().Get("skip"))
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit < 1 || limit > 100 {
		limit = 10
	}
	if skip < 0 {
		skip = 0
	}
	return skip, limit
}

func window(n, skip, limit int) (int, int) {
	if skip > n {
		skip = n
	}
	end := skip + limit
	if end > n {
		end = n
	}
	return skip, end
}

func (s *Server) voiceHistory(w http.ResponseWriter, r *http.Request) {
	skip, limit := pageParams(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	from, to := window(len(s.history), skip, limit)
	writeJSON(w, http.StatusOK, services.TranscriptionHistory{
		Items: append([]services.TranscriptionRecord{}, s.history[from:to]...),
		Total: len(s.history),
		Skip:  skip,
		Limit: limit,
	})
}

func (s *Server) generate(w http.ResponseWriter, r *http.Request) {
	var req services.GenerateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if len(strings.TrimSpace(req.Description)) < 10 {
		writeValidation(w, "description", "String should have at least 10 characters")
		return
	}
	tmpl, ok := templates[req.CloudProvider]
	if !ok {
		writeValidation(w, "cloud_provider", "Input should be 'aws', 'gcp' or 'azure'")
		return
	}
	if len(req.Region) < 2 {
		writeValidation(w, "region", "String should have at least 2 characters")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	uid := userFromContext(r.Context())
	u := s.userByIDLocked(uid)
	if u != nil && u.APICallsUsed >= u.APIQuota {
		writeDetail(w, http.StatusTooManyRequests, "API quota exceeded. Used "+strconv.Itoa(u.APICallsUsed)+"/"+strconv.Itoa(u.APIQuota))
		return
	}
	if u != nil {
		u.APICallsUsed++
	}

	name := req.Description
	if len(name) > 50 {
		name = name[:50]
	}
	d := &services.Deployment{
		ID:            uuid.NewString(),
		UserID:        uid,
		Name:          name,
		Description:   req.Description,
		CloudProvider: req.CloudProvider,
		Region:        req.Region,
		TerraformCode: tmpl.main,
		Status:        services.StatusGenerated,
		Resources:     append([]string{}, tmpl.resources...),
		CreatedAt:     s.now(),
		UpdatedAt:     s.now(),
	}
	s.deployments[d.ID] = d
	s.order = append(s.order, d.ID)

	writeJSON(w, http.StatusCreated, services.GenerateResponse{
		DeploymentID: d.ID,
		MainTF:       tmpl.main,
		VariablesTF:  variablesTF(req.Region),
		OutputsTF:    outputsTF,
		Resources:    d.Resources,
		Message:      "Terraform code generated successfully",
	})
}

// ownedLocked resolves {id} to a deployment of the calling user, writing the
// error response itself when it cannot.
func (s *Server) ownedLocked(w http.ResponseWriter, r *http.Request, id string) *services.Deployment {
	d := s.deployments[id]
	if d == nil {
		writeDetail(w, http.StatusNotFound, "Deployment not found")
		return nil
	}
	if d.UserID != userFromContext(r.Context()) {
		writeDetail(w, http.StatusForbidden, "Not authorized to access this deployment")
		return nil
	}
	return d
}

func (s *Server) getCode(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d := s.ownedLocked(w, r, chi.URLParam(r, "id")); d != nil {
		writeJSON(w, http.StatusOK, d)
	}
}

func (s *Server) updateCode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TerraformCode string `json:"terraform_code"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.TerraformCode == "" {
		writeValidation(w, "terraform_code", "String should have at least 1 character")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.ownedLocked(w, r, chi.URLParam(r, "id"))
	if d == nil {
		return
	}
	d.TerraformCode = req.TerraformCode
	d.UpdatedAt = s.now()
	writeJSON(w, http.StatusOK, d)
}

type codeRequest struct {
	TerraformCode string `json:"terraform_code"`
	DeploymentID  string `json:"deployment_id"`
}

func (s *Server) decodeCode(w http.ResponseWriter, r *http.Request) (codeRequest, bool) {
	var req codeRequest
	if !decodeBody(w, r, &req) {
		return req, false
	}
	if req.TerraformCode == "" {
		writeValidation(w, "terraform_code", "String should have at least 1 character")
		return req, false
	}
	return req, true
}

func (s *Server) scan(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeCode(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if req.DeploymentID != "" && s.ownedLocked(w, r, req.DeploymentID) == nil {
		return
	}

	issues := scanIssues(req.TerraformCode)
	checks := len(resourceTypes(req.TerraformCode)) * 4
	if checks < len(issues) {
		checks = len(issues)
	}
	res := services.SecurityScan{
		ID:            uuid.NewString(),
		DeploymentID:  req.DeploymentID,
		PassedChecks:  checks - len(issues),
		FailedChecks:  len(issues),
		Issues:        issues,
		CreatedAt:     s.now(),
		Message:       "Security scan completed",
		SecurityScore: 10,
	}
	for _, is := range issues {
		switch is.Severity {
		case "critical":
			res.CriticalIssues++
		case "high":
			res.HighIssues++
		case "medium":
			res.MediumIssues++
		default:
			res.LowIssues++
		}
	}
	if checks > 0 {
		res.SecurityScore = round2(10 * float64(res.PassedChecks) / float64(checks))
	}
	if res.Issues == nil {
		res.Issues = []services.SecurityIssue{}
	}
	s.scans[res.ID] = res
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) getScan(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, ok := s.scans[chi.URLParam(r, "id")]
	if !ok {
		writeDetail(w, http.StatusNotFound, "Security scan not found")
		return
	}
	if res.DeploymentID != "" && s.ownedLocked(w, r, res.DeploymentID) == nil {
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) estimateCode(code, deploymentID string) services.CostEstimate {
	est := services.CostEstimate{
		ID:              uuid.NewString(),
		DeploymentID:    deploymentID,
		Breakdown:       map[string]float64{},
		ResourceCosts:   []services.ResourceCost{},
		Recommendations: []services.CostOptimization{},
		CreatedAt:       s.now(),
		Message:         "Cost estimate completed",
	}
	for _, rt := range resourceTypes(code) {
		category, cost := priceResource(rt[0])
		est.MonthlyCost += cost
		est.Breakdown[category] = round2(est.Breakdown[category] + cost)
		est.ResourceCosts = append(est.ResourceCosts, services.ResourceCost{
			Name:        rt[1],
			Type:        rt[0],
			MonthlyCost: cost,
		})
	}
	est.MonthlyCost = round2(est.MonthlyCost)
	est.AnnualCost = round2(est.MonthlyCost * 12)
	for i := range est.ResourceCosts {
		if est.MonthlyCost > 0 {
			est.ResourceCosts[i].Percentage = round2(100 * est.ResourceCosts[i].MonthlyCost / est.MonthlyCost)
		}
	}
	if est.Breakdown["compute"] > 0 {
		est.Recommendations = append(est.Recommendations, services.CostOptimization{
			Title:            "Use reserved instances",
			Description:      "Commit to a one year term for steady workloads.",
			PotentialSavings: round2(est.Breakdown["compute"] * 0.3),
			Priority:         "medium",
		})
	}
	if est.OverThreshold() {
		est.Warning = "Estimated monthly cost exceeds $1000"
	}
	return est
}

func (s *Server) estimate(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeCode(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if req.DeploymentID != "" && s.ownedLocked(w, r, req.DeploymentID) == nil {
		return
	}
	est := s.estimateCode(req.TerraformCode, req.DeploymentID)
	if req.DeploymentID != "" {
		s.costs[req.DeploymentID] = est
	}
	writeJSON(w, http.StatusCreated, est)
}

func (s *Server) getCost(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ownedLocked(w, r, id) == nil {
		return
	}
	est, ok := s.costs[id]
	if !ok {
		writeDetail(w, http.StatusNotFound, "No cost estimate found for this deployment")
		return
	}
	writeJSON(w, http.StatusOK, est)
}

func (s *Server) listDeployments(w http.ResponseWriter, r *http.Request) {
	skip, limit := pageParams(r)
	status := r.URL.Query().Get("status_filter")
	provider := r.URL.Query().Get("cloud_provider")
	uid := userFromContext(r.Context())

	s.mu.Lock()
	defer s.mu.Unlock()
	var out []services.Deployment
	for _, id := range s.order {
		d := s.deployments[id]
		if d.UserID != uid {
			continue
		}
		if status != "" && string(d.Status) != status {
			continue
		}
		if provider != "" && string(d.CloudProvider) != provider {
			continue
		}
		out = append(out, *d)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt.Time) })
	from, to := window(len(out), skip, limit)
	writeJSON(w, http.StatusOK, append([]services.Deployment{}, out[from:to]...))
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	uid := userFromContext(r.Context())
	s.mu.Lock()
	defer s.mu.Unlock()
	var st services.Stats
	for _, d := range s.deployments {
		if d.UserID != uid {
			continue
		}
		st.TotalDeployments++
		switch d.Status {
		case services.StatusDeployed:
			st.ActiveDeployments++
			st.TotalCost += s.costs[d.ID].MonthlyCost
		case services.StatusFailed:
			st.FailedDeployments++
		}
	}
	if st.TotalDeployments > 0 {
		ok := st.TotalDeployments - st.FailedDeployments
		st.SuccessRate = round2(100 * float64(ok) / float64(st.TotalDeployments))
	}
	st.TotalCost = round2(st.TotalCost)
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) getDeployment(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d := s.ownedLocked(w, r, chi.URLParam(r, "id")); d != nil {
		writeJSON(w, http.StatusOK, d)
	}
}

func (s *Server) deploy(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.ownedLocked(w, r, chi.URLParam(r, "id"))
	if d == nil {
		return
	}
	if d.TerraformCode == "" {
		writeDetail(w, http.StatusBadRequest, "No Terraform code to deploy")
		return
	}
	d.Status = services.StatusDeployed
	d.DeployedAt = s.now()
	d.UpdatedAt = d.DeployedAt
	d.ErrorMessage = ""
	writeJSON(w, http.StatusOK, services.ActionResult{
		Message:      "Deployment started",
		DeploymentID: d.ID,
		Status:       services.StatusDeploying,
	})
}

func (s *Server) destroy(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.ownedLocked(w, r, chi.URLParam(r, "id"))
	if d == nil {
		return
	}
	d.Status = services.StatusDestroyed
	d.DestroyedAt = s.now()
	d.UpdatedAt = d.DestroyedAt
	writeJSON(w, http.StatusOK, services.ActionResult{
		Message:      "Destruction started",
		DeploymentID: d.ID,
		Status:       services.StatusDestroying,
	})
}
