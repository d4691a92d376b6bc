// Copyright 2025 Veritrust Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package api

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/veritrust-io/veritrust/registry"
)

type articleResponse struct {
	ContentHash string  `json:"content_hash"`
	Uri         string  `json:"uri,omitempty"`
	Publisher   string  `json:"publisher,omitempty"`
	Submitter   string  `json:"submitter"`
	CreatedAt   uint64  `json:"created_at"`
	Status      string  `json:"status"`
	YesVotes    uint64  `json:"yes_votes"`
	NoVotes     uint64  `json:"no_votes"`
	Finalized   bool    `json:"finalized"`
	FinalizedAt *uint64 `json:"finalized_at,omitempty"`
}

func newArticleResponse(article *registry.Article) articleResponse {
	return articleResponse{
		ContentHash: article.ContentHash.String(),
		Uri:         article.Uri,
		Publisher:   article.Publisher,
		Submitter:   article.Submitter,
		CreatedAt:   article.CreatedAt,
		Status:      article.Status.String(),
		YesVotes:    article.YesVotes,
		NoVotes:     article.NoVotes,
		Finalized:   article.Finalized,
		FinalizedAt: article.FinalizedAt,
	}
}

func (a *Api) fingerprintParam(c *gin.Context) (registry.Fingerprint, bool) {
	hash, err := registry.FingerprintFromHex(c.Param("hash"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return registry.Fingerprint{}, false
	}
	return hash, true
}

type submitRequest struct {
	ContentHash string `json:"content_hash" binding:"required"`
	Uri         string `json:"uri"`
	Publisher   string `json:"publisher"`
	Submitter   string `json:"submitter" binding:"required"`
}

func (a *Api) handleSubmit(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	hash, err := registry.FingerprintFromHex(req.ContentHash)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if _, err := a.config.Articles.Submit(
		req.Submitter,
		hash,
		req.Uri,
		req.Publisher,
	); err != nil {
		a.abortWithError(c, err)
		return
	}
	article, err := a.config.Articles.GetArticle(hash)
	if err != nil {
		a.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newArticleResponse(article))
}

func (a *Api) handleGetArticle(c *gin.Context) {
	hash, ok := a.fingerprintParam(c)
	if !ok {
		return
	}
	article, err := a.config.Articles.GetArticle(hash)
	if err != nil {
		a.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, newArticleResponse(article))
}

type voteRequest struct {
	Voter   string `json:"voter"   binding:"required"`
	Support *bool  `json:"support" binding:"required"`
}

func (a *Api) handleVote(c *gin.Context) {
	hash, ok := a.fingerprintParam(c)
	if !ok {
		return
	}
	var req voteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if _, err := a.config.Articles.Vote(req.Voter, hash, *req.Support); err != nil {
		a.abortWithError(c, err)
		return
	}
	article, err := a.config.Articles.GetArticle(hash)
	if err != nil {
		a.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newArticleResponse(article))
}

func (a *Api) handleHasVoted(c *gin.Context) {
	hash, ok := a.fingerprintParam(c)
	if !ok {
		return
	}
	voted, err := a.config.Articles.HasVoted(hash, c.Param("address"))
	if err != nil {
		a.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"content_hash": hash.String(),
		"address":      c.Param("address"),
		"voted":        voted,
	})
}

func (a *Api) handleIsTrusted(c *gin.Context) {
	address := c.Param("address")
	trusted, err := a.config.Trust.IsTrusted(address)
	if err != nil {
		a.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"address": address,
		"trusted": trusted,
	})
}

type addPublisherRequest struct {
	Caller  string `json:"caller"  binding:"required"`
	Address string `json:"address" binding:"required"`
}

func (a *Api) handleAddPublisher(c *gin.Context) {
	var req addPublisherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if _, err := a.config.Trust.AddPublisher(req.Caller, req.Address); err != nil {
		a.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"address": req.Address,
		"trusted": true,
	})
}

func (a *Api) handleRemovePublisher(c *gin.Context) {
	caller := c.Query("caller")
	address := c.Param("address")
	if _, err := a.config.Trust.RemovePublisher(caller, address); err != nil {
		a.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"address": address,
		"trusted": false,
	})
}

func (a *Api) handleGetParams(c *gin.Context) {
	params, err := a.config.Articles.VotingParams()
	if err != nil {
		a.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"voting_period": params.VotingPeriod,
		"min_votes":     params.MinVotes,
	})
}

type setParamsRequest struct {
	Caller       string  `json:"caller" binding:"required"`
	VotingPeriod *uint64 `json:"voting_period" binding:"required"`
	MinVotes     *uint64 `json:"min_votes" binding:"required"`
}

func (a *Api) handleSetParams(c *gin.Context) {
	var req setParamsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if _, err := a.config.Articles.SetVotingParams(
		req.Caller,
		registry.VotingParams{
			VotingPeriod: *req.VotingPeriod,
			MinVotes:     *req.MinVotes,
		},
	); err != nil {
		a.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"voting_period": *req.VotingPeriod,
		"min_votes":     *req.MinVotes,
	})
}

type fingerprintRequest struct {
	Content string `json:"content" binding:"required"`
}

// handleFingerprint computes the content fingerprint for a caller that
// can't hash locally. The digest is SHA-256 over whitespace-trimmed
// content; the registries themselves never hash anything.
func (a *Api) handleFingerprint(c *gin.Context) {
	var req fingerprintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	digest := sha256.Sum256([]byte(strings.TrimSpace(req.Content)))
	c.JSON(http.StatusOK, gin.H{
		"content_hash": hex.EncodeToString(digest[:]),
	})
}
