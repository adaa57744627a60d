/*
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/


// Package agent serves broker credentials to pods on the local node in
// the AWS container credentials format.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/gorilla/mux"
	authenticationv1 "k8s.io/api/authentication/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	typedauthv1 "k8s.io/client-go/kubernetes/typed/authentication/v1"

	"github.com/secretfed/secretfed/pkg/broker"
	"github.com/secretfed/secretfed/pkg/constants"
	"github.com/secretfed/secretfed/pkg/identity"
	"github.com/secretfed/secretfed/pkg/metrics"
	"github.com/secretfed/secretfed/pkg/reason"
)

const (
	// CredentialsPath is the endpoint set as AWS_CONTAINER_CREDENTIALS_FULL_URI.
	CredentialsPath = "/v1/credentials"
	HealthzPath     = "/healthz"

	serviceAccountPrefix = "system:serviceaccount:"

	errMissingToken      = "missing authorization token"
	errTokenReview       = "token review failed"
	errNotAuthenticated  = "token is not authenticated"
	errNotServiceAccount = "token does not belong to a service account: %q"
	errNotAWSCredential  = "role %s does not issue aws credentials"
)

// Response is the AWS container credentials document.
type Response struct {
	AccessKeyID     string `json:"AccessKeyId"`
	SecretAccessKey string `json:"SecretAccessKey"`
	Token           string `json:"Token"`
	Expiration      string `json:"Expiration,omitempty"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Server authenticates callers by their ServiceAccount token and hands out
// the credential the broker holds for that identity.
type Server struct {
	Reviews     typedauthv1.TokenReviewInterface
	Credentials broker.Provider
	Log         logr.Logger

	// Audiences restricts the accepted token audiences. Empty accepts the
	// API server default.
	Audiences []string
}

// Handler returns the router serving the agent endpoints.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc(CredentialsPath, s.credentials).Methods(http.MethodGet)
	r.HandleFunc(HealthzPath, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodGet)
	return r
}

// ListenAndServe serves Handler on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.Log.Info("credential agent listening", "addr", addr)
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) credentials(w http.ResponseWriter, req *http.Request) {
	token := bearerToken(req)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "Unauthorized", errMissingToken)
		return
	}
	id, err := s.authenticate(req.Context(), token)
	if err != nil {
		s.Log.V(1).Info("rejected credential request", "error", err.Error())
		writeError(w, http.StatusUnauthorized, "Unauthorized", err.Error())
		return
	}
	log := s.Log.WithValues("namespace", id.Namespace, "serviceAccount", id.ServiceAccount)

	cred, err := s.Credentials.GetCredential(req.Context(), id)
	if err != nil {
		log.Error(err, "unable to get credential")
		writeError(w, statusFor(err), string(reason.Of(err)), err.Error())
		return
	}
	if cred.AccessKeyID == "" {
		writeError(w, http.StatusBadRequest, "InvalidRole", fmt.Sprintf(errNotAWSCredential, cred.Role.Name))
		return
	}

	resp := Response{
		AccessKeyID:     cred.AccessKeyID,
		SecretAccessKey: cred.SecretAccessKey,
		Token:           cred.SessionToken,
	}
	if !cred.Static() {
		resp.Expiration = cred.ExpiresAt.UTC().Format(time.RFC3339)
	}
	log.V(1).Info("served credential", "role", cred.Role.Name)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) authenticate(ctx context.Context, token string) (identity.WorkloadIdentity, error) {
	review := &authenticationv1.TokenReview{
		Spec: authenticationv1.TokenReviewSpec{
			Token:     token,
			Audiences: s.Audiences,
		},
	}
	res, err := s.Reviews.Create(ctx, review, metav1.CreateOptions{})
	metrics.ObserveAPICall(constants.ProviderKubernetes, constants.CallKubernetesTokenReview, err)
	if err != nil {
		return identity.WorkloadIdentity{}, fmt.Errorf("%s: %w", errTokenReview, err)
	}
	if !res.Status.Authenticated {
		if res.Status.Error != "" {
			return identity.WorkloadIdentity{}, fmt.Errorf("%s: %s", errNotAuthenticated, res.Status.Error)
		}
		return identity.WorkloadIdentity{}, errors.New(errNotAuthenticated)
	}
	return serviceAccountFromUsername(res.Status.User.Username)
}

// serviceAccountFromUsername parses system:serviceaccount:<namespace>:<name>.
func serviceAccountFromUsername(username string) (identity.WorkloadIdentity, error) {
	rest, ok := strings.CutPrefix(username, serviceAccountPrefix)
	if !ok {
		return identity.WorkloadIdentity{}, fmt.Errorf(errNotServiceAccount, username)
	}
	ns, name, ok := strings.Cut(rest, ":")
	if !ok || ns == "" || name == "" || strings.Contains(name, ":") {
		return identity.WorkloadIdentity{}, fmt.Errorf(errNotServiceAccount, username)
	}
	return identity.WorkloadIdentity{Namespace: ns, ServiceAccount: name}, nil
}

// bearerToken accepts both "Bearer <token>" and the bare token the AWS
// SDKs send from AWS_CONTAINER_AUTHORIZATION_TOKEN.
func bearerToken(req *http.Request) string {
	h := strings.TrimSpace(req.Header.Get("Authorization"))
	if after, ok := strings.CutPrefix(h, "Bearer "); ok {
		return strings.TrimSpace(after)
	}
	return h
}

func statusFor(err error) int {
	switch reason.ClassOf(err) {
	case reason.Transient:
		return http.StatusServiceUnavailable
	case reason.Authorization, reason.Configuration:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
